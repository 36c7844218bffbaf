package format

var (
	roastLevels = map[string]string{
		"LIGHT":        "라이트 로스팅",
		"MEDIUM_LIGHT": "미디움 라이트",
		"MEDIUM":       "미디움",
		"MEDIUM_DARK":  "미디움 다크",
		"DARK":         "다크 로스팅",
	}
	processTypes = map[string]string{
		"WASHED":     "워시드",
		"NATURAL":    "내추럴",
		"HONEY":      "허니",
		"WET_HULLED": "웻 헐드",
		"ANAEROBIC":  "혐기발효",
	}
	blendTypes = map[string]string{
		"SINGLE_ORIGIN": "싱글 오리진",
		"BLEND":         "블렌드",
	}
	categories = map[string]string{
		"HAND_DRIP": "핸드드립",
		"ESPRESSO":  "에스프레소",
		"COLD_BREW": "콜드브루",
		"MOCHA_POT": "모카포트",
	}
	equipmentTypes = map[string]string{
		"GRINDER":   "그라인더",
		"DRIPPER":   "드리퍼",
		"MACHINE":   "머신",
		"SCALE":     "저울",
		"KETTLE":    "케틀",
		"ACCESSORY": "액세서리",
	}
)

func label(m map[string]string, v string) string {
	if l, ok := m[v]; ok {
		return l
	}
	return v
}

// The label functions return v unchanged for unknown values.

func RoastLevel(v string) string    { return label(roastLevels, v) }
func ProcessType(v string) string   { return label(processTypes, v) }
func BlendType(v string) string     { return label(blendTypes, v) }
func Category(v string) string      { return label(categories, v) }
func EquipmentType(v string) string { return label(equipmentTypes, v) }
