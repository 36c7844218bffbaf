package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	clientmodels "github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/server/services"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// registerCatalog mounts the five collection routes under path. Reads are
// public, writes need a session.
func registerCatalog[T services.Item](public, protected *gin.RouterGroup, path string, svc *services.CatalogService[T]) {
	public.GET(path, func(c *gin.Context) {
		page, size, ok := pagination(c)
		if !ok {
			badRequest(c, "invalid page or size")
			return
		}
		success(c, http.StatusOK, clientmodels.Page[T]{
			Page:    page,
			Size:    size,
			Content: svc.List(c.Request.Context(), page, size),
		})
	})

	public.GET(path+"/:id", func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		item, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		success(c, http.StatusOK, item)
	})

	protected.POST(path, func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		success(c, http.StatusCreated, svc.Create(c.Request.Context(), c.GetInt64(ctxUserID), item))
	})

	protected.PUT(path+"/:id", func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		updated, err := svc.Update(c.Request.Context(), c.GetInt64(ctxUserID), id, item)
		if err != nil {
			writeError(c, err)
			return
		}
		success(c, http.StatusOK, updated)
	})

	protected.DELETE(path+"/:id", func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), c.GetInt64(ctxUserID), id); err != nil {
			writeError(c, err)
			return
		}
		success(c, http.StatusOK, nil)
	})
}

func pagination(c *gin.Context) (page, size int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size <= 0 {
		return 0, 0, false
	}
	return page, min(size, maxPageSize), true
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorForbidden):
		fail(c, http.StatusForbidden, "only the owner may change this item")
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
