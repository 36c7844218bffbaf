// Package catalog keeps the bean, recipe and equipment collections of the
// development backend in memory.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/common"
)

// Fields tells a Collection where an item keeps its id, ownership and
// timestamps. SetOwner writes whichever ownership alias the collection
// reports.
type Fields[T any] struct {
	ID        func(*T) *int64
	Ownership func(*T) *models.Ownership
	SetOwner  func(*T, int64)
	CreatedAt func(*T) *time.Time
	UpdatedAt func(*T) *time.Time
}

// Check vets the stored item before a mutation; a non-nil error aborts it.
type Check[T any] func(current *T) error

// Collection is a concurrency-safe id-keyed store. Items are copied in and
// out so callers never share memory with it.
type Collection[T any] struct {
	mu     sync.RWMutex
	fields Fields[T]
	nextID int64
	items  map[int64]T
	now    func() time.Time
}

func NewCollection[T any](f Fields[T]) *Collection[T] {
	return &Collection[T]{fields: f, items: make(map[int64]T), now: time.Now}
}

func NewBeans() *Collection[models.Bean] {
	return NewCollection(Fields[models.Bean]{
		ID:        func(b *models.Bean) *int64 { return &b.ID },
		Ownership: func(b *models.Bean) *models.Ownership { return &b.Ownership },
		SetOwner:  func(b *models.Bean, uid int64) { b.UserID = &uid },
		CreatedAt: func(b *models.Bean) *time.Time { return &b.CreatedAt },
		UpdatedAt: func(b *models.Bean) *time.Time { return &b.UpdatedAt },
	})
}

func NewRecipes() *Collection[models.Recipe] {
	return NewCollection(Fields[models.Recipe]{
		ID:        func(r *models.Recipe) *int64 { return &r.ID },
		Ownership: func(r *models.Recipe) *models.Ownership { return &r.Ownership },
		SetOwner:  func(r *models.Recipe, uid int64) { r.CreatedBy = &models.UserRef{ID: uid} },
		CreatedAt: func(r *models.Recipe) *time.Time { return &r.CreatedAt },
		UpdatedAt: func(r *models.Recipe) *time.Time { return &r.UpdatedAt },
	})
}

func NewEquipment() *Collection[models.Equipment] {
	return NewCollection(Fields[models.Equipment]{
		ID:        func(e *models.Equipment) *int64 { return &e.ID },
		Ownership: func(e *models.Equipment) *models.Ownership { return &e.Ownership },
		SetOwner:  func(e *models.Equipment, uid int64) { e.AuthorID = &uid },
		CreatedAt: func(e *models.Equipment) *time.Time { return &e.CreatedAt },
		UpdatedAt: func(e *models.Equipment) *time.Time { return &e.UpdatedAt },
	})
}

// List returns one page, newest first. page is zero-based.
func (c *Collection[T]) List(ctx context.Context, page, size int) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)

	from := page * size
	if from >= len(ids) {
		return []T{}
	}
	to := min(from+size, len(ids))

	out := make([]T, 0, to-from)
	for _, id := range ids[from:to] {
		out = append(out, c.items[id])
	}
	return out
}

func (c *Collection[T]) Get(ctx context.Context, id int64) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &item, nil
}

// Create stores item under a fresh id owned by ownerID. Ownership fields
// sent by the caller are discarded.
func (c *Collection[T]) Create(ctx context.Context, ownerID int64, item T) *T {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	*c.fields.ID(&item) = c.nextID
	*c.fields.Ownership(&item) = models.Ownership{}
	c.fields.SetOwner(&item, ownerID)
	now := c.now()
	*c.fields.CreatedAt(&item) = now
	*c.fields.UpdatedAt(&item) = now

	c.items[c.nextID] = item
	return &item
}

// Update replaces the item's content once check accepts the stored version.
// The id, ownership and creation time of the stored item are kept.
func (c *Collection[T]) Update(ctx context.Context, id int64, check Check[T], item T) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := check(&current); err != nil {
		return nil, err
	}

	*c.fields.ID(&item) = id
	*c.fields.Ownership(&item) = *c.fields.Ownership(&current)
	*c.fields.CreatedAt(&item) = *c.fields.CreatedAt(&current)
	*c.fields.UpdatedAt(&item) = c.now()

	c.items[id] = item
	return &item, nil
}

// Delete removes the item once check accepts it.
func (c *Collection[T]) Delete(ctx context.Context, id int64, check Check[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	if err := check(&current); err != nil {
		return err
	}
	delete(c.items, id)
	return nil
}

// Len reports the number of stored items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
