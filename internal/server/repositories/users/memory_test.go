package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/server/models"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u1, err := repo.Create(ctx, &models.User{UserName: "Alice"})
	require.NoError(t, err)
	u2, err := repo.Create(ctx, &models.User{UserName: "bob"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), u1.ID)
	assert.Equal(t, int64(2), u2.ID)
	assert.False(t, u1.CreatedAt.IsZero())

	got, err := repo.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.UserName)

	got, err = repo.GetUserByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.UserName)
}

func TestMemoryRepository_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.Create(ctx, &models.User{UserName: "alice"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{UserName: "ALICE"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.GetUserByLogin(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetUserByID(ctx, 42)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u, err := repo.Create(ctx, &models.User{UserName: "alice", Email: "a@x"})
	require.NoError(t, err)
	u.Email = "changed"

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x", got.Email)
}
