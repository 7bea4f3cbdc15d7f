package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

// runUserRepositoryContract exercises behaviour every credential store must share.
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	t.Run("save then find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		user := &domain.User{Username: "alice", PasswordHash: "$2a$04$digest"}
		require.NoError(t, repo.Save(ctx, user))
		assert.NotEmpty(t, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		found, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "alice", found.Username)
		assert.Equal(t, "$2a$04$digest", found.PasswordHash)
	})

	t.Run("find missing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		exists, err := repo.ExistsByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.Save(ctx, &domain.User{Username: "carol", PasswordHash: "h"}))

		exists, err = repo.ExistsByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate save conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := &domain.User{Username: "dave", PasswordHash: "first"}
		require.NoError(t, repo.Save(ctx, first))

		err := repo.Save(ctx, &domain.User{Username: "dave", PasswordHash: "second"})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		found, err := repo.FindByUsername(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, "first", found.PasswordHash)
	})

	t.Run("concurrent saves admit one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
			other     []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.Save(ctx, &domain.User{Username: "eve", PasswordHash: fmt.Sprintf("h%d", i)})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, domain.ErrAlreadyExists):
					conflicts++
				default:
					other = append(other, err)
				}
			}(i)
		}
		wg.Wait()

		assert.Empty(t, other)
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, workers-1, conflicts)
	})
}
