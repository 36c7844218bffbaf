// Package format renders dates and enum values for display in Korean.
package format

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006년 01월 02일"
	dateTimeLayout = "2006년 01월 02일 15:04"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, local ISO date-times and plain dates.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func Date(t time.Time) string {
	return t.Format(dateLayout)
}

func DateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

// DateString formats an ISO date string, echoing it back when unparseable.
func DateString(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return Date(t)
}

// Relative describes how long before now t was, in whole days rounded down.
// Times in the future count as today.
func Relative(t, now time.Time) string {
	days := int(now.Sub(t) / (24 * time.Hour))
	switch {
	case days <= 0:
		return "오늘"
	case days == 1:
		return "어제"
	case days < 7:
		return fmt.Sprintf("%d일 전", days)
	case days < 30:
		return fmt.Sprintf("%d주일 전", days/7)
	case days < 365:
		return fmt.Sprintf("%d개월 전", days/30)
	default:
		return fmt.Sprintf("%d년 전", days/365)
	}
}
