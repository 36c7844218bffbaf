package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
)

const DefaultPageSize = 10

type ListQuery struct {
	Page int
	Size int
	Sort string
}

func (q ListQuery) encode() string {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}

	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v.Encode()
}

// ResourceService is CRUD over one backend collection.
type ResourceService[T any] struct {
	api  API
	path string
}

func NewResourceService[T any](api API, path string) *ResourceService[T] {
	return &ResourceService[T]{api: api, path: path}
}

func NewBeanService(api API) *ResourceService[models.Bean] {
	return NewResourceService[models.Bean](api, "/beans")
}

func NewRecipeService(api API) *ResourceService[models.Recipe] {
	return NewResourceService[models.Recipe](api, "/recipes")
}

func NewEquipmentService(api API) *ResourceService[models.Equipment] {
	return NewResourceService[models.Equipment](api, "/equipments")
}

func (s *ResourceService[T]) List(ctx context.Context, q ListQuery) (*models.Page[T], error) {
	var page models.Page[T]
	if err := s.api.Do(ctx, http.MethodGet, s.path+"?"+q.encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.path, err)
	}
	return &page, nil
}

func (s *ResourceService[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := s.api.Do(ctx, http.MethodGet, s.item(id), nil, &item); err != nil {
		return nil, fmt.Errorf("get %s: %w", s.item(id), err)
	}
	return &item, nil
}

func (s *ResourceService[T]) Create(ctx context.Context, item *T) (*T, error) {
	var created T
	if err := s.api.Do(ctx, http.MethodPost, s.path, item, &created); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.path, err)
	}
	return &created, nil
}

func (s *ResourceService[T]) Update(ctx context.Context, id int64, item *T) (*T, error) {
	var updated T
	if err := s.api.Do(ctx, http.MethodPut, s.item(id), item, &updated); err != nil {
		return nil, fmt.Errorf("update %s: %w", s.item(id), err)
	}
	return &updated, nil
}

func (s *ResourceService[T]) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, s.item(id), nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", s.item(id), err)
	}
	return nil
}

func (s *ResourceService[T]) item(id int64) string {
	return s.path + "/" + strconv.FormatInt(id, 10)
}
