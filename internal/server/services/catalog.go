package services

import (
	"context"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/client/policy"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/server/repositories/catalog"
)

// Item is any catalog resource: it reports its owner to the policy.
type Item interface {
	models.Bean | models.Recipe | models.Equipment
}

// CatalogService applies the ownership policy on top of a collection. Edits
// and deletes by anyone but the owner fail with common.ErrorForbidden.
type CatalogService[T Item] struct {
	items *catalog.Collection[T]
}

func NewCatalogService[T Item](c *catalog.Collection[T]) *CatalogService[T] {
	return &CatalogService[T]{items: c}
}

func (s *CatalogService[T]) List(ctx context.Context, page, size int) []T {
	return s.items.List(ctx, page, size)
}

func (s *CatalogService[T]) Get(ctx context.Context, id int64) (*T, error) {
	return s.items.Get(ctx, id)
}

func (s *CatalogService[T]) Create(ctx context.Context, userID int64, item T) *T {
	return s.items.Create(ctx, userID, item)
}

func (s *CatalogService[T]) Update(ctx context.Context, userID, id int64, item T) (*T, error) {
	return s.items.Update(ctx, id, s.allowed(policy.Edit, userID), item)
}

func (s *CatalogService[T]) Delete(ctx context.Context, userID, id int64) error {
	return s.items.Delete(ctx, id, s.allowed(policy.Delete, userID))
}

func (s *CatalogService[T]) allowed(a policy.Action, userID int64) catalog.Check[T] {
	subject := policy.Subject{Authenticated: true, User: &models.User{ID: userID}}
	return func(current *T) error {
		if !policy.CanPerform(a, subject, resource(current)) {
			return common.ErrorForbidden
		}
		return nil
	}
}

func resource[T Item](item *T) policy.Resource {
	switch v := any(item).(type) {
	case *models.Bean:
		return v
	case *models.Recipe:
		return v
	case *models.Equipment:
		return v
	}
	return nil
}
