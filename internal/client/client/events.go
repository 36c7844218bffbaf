package client

import (
	"context"
	"slices"
	"sync"
)

// SessionExpiredFunc is called after the stored session was cleared because
// the tokens could not be renewed.
type SessionExpiredFunc func(ctx context.Context)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]SessionExpiredFunc
}

// add registers fn and returns a function that removes it. The returned
// function may be called any number of times.
func (l *listeners) add(fn SessionExpiredFunc) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]SessionExpiredFunc)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// fire calls the listeners in registration order.
func (l *listeners) fire(ctx context.Context) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]SessionExpiredFunc, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}
