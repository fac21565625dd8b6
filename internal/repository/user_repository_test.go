package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/query"
)

func strPtr(s string) *string { return &s }

func newUser(upn, first, last string, email *string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:          uuid.NewString(),
		UPN:         upn,
		FirstName:   first,
		LastName:    last,
		Email:       email,
		CreatedDate: now,
		UpdatedDate: now,
	}
}

// runUserRepositoryContract exercises behavior every UserRepository shares.
func runUserRepositoryContract(t *testing.T, repo UserRepository) {
	ctx := context.Background()

	jdoe := newUser("jdoe", "Jane", "Doe", strPtr("jane@example.com"))
	require.NoError(t, repo.Create(ctx, jdoe))
	require.NoError(t, repo.Create(ctx, newUser("asmith", "Adam", "Smith", nil)))
	require.ErrorIs(t, repo.Create(ctx, newUser("jdoe", "Other", "Person", nil)), ErrDuplicate)

	got, err := repo.GetByUPN(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, jdoe.ID, got.ID)
	assert.Equal(t, "Jane", got.FirstName)
	require.NotNil(t, got.Email)
	assert.Equal(t, "jane@example.com", *got.Email)
	assert.True(t, jdoe.CreatedDate.Equal(got.CreatedDate))

	_, err = repo.GetByUPN(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)

	returned, err := repo.Update(ctx, "jdoe", func(u *domain.User) error {
		u.FirstName = "J."
		u.Email = nil
		u.UpdatedDate = u.UpdatedDate.Add(time.Second)
		u.UPN = "hijack"
		u.ID = "other"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", returned.UPN)
	assert.Equal(t, jdoe.ID, returned.ID)

	updated, err := repo.GetByUPN(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "J.", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
	assert.Nil(t, updated.Email)
	assert.Equal(t, jdoe.ID, updated.ID)
	assert.True(t, updated.UpdatedDate.After(updated.CreatedDate))
	_, err = repo.GetByUPN(ctx, "hijack")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, "ghost", func(u *domain.User) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)

	mutateErr := errors.New("rejected")
	_, err = repo.Update(ctx, "jdoe", func(u *domain.User) error {
		u.LastName = "Discarded"
		return mutateErr
	})
	require.ErrorIs(t, err, mutateErr)
	kept, err := repo.GetByUPN(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Doe", kept.LastName)

	runConcurrentDisjointUpdates(t, repo)

	all, err := repo.List(ctx, query.Spec{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := repo.List(ctx, query.Parse(map[string]string{"lastName_contains": "SMI"}))
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "asmith", filtered[0].UPN)

	none, err := repo.List(ctx, query.Eq(map[string]string{"email": "nobody@example.com"}))
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Delete(ctx, "jdoe"))
	require.ErrorIs(t, repo.Delete(ctx, "jdoe"), ErrNotFound)
	_, err = repo.GetByUPN(ctx, "jdoe")
	require.ErrorIs(t, err, ErrNotFound)
}

// runConcurrentDisjointUpdates holds one update inside its mutator while a
// second update of another field runs, then checks both changes survived.
func runConcurrentDisjointUpdates(t *testing.T, repo UserRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newUser("race", "Jane", "Doe", nil)))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repo.Update(ctx, "race", func(u *domain.User) error {
			once.Do(func() {
				close(entered)
				<-release
			})
			u.FirstName = "J."
			return nil
		})
		errs <- err
	}()

	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repo.Update(ctx, "race", func(u *domain.User) error {
			u.LastName = "Smith"
			return nil
		})
		errs <- err
	}()
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetByUPN(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, "J.", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	require.NoError(t, repo.Delete(ctx, "race"))
}

func TestMemoryUserRepositoryContract(t *testing.T) {
	runUserRepositoryContract(t, NewMemoryUserRepository())
}

func TestMemoryUserRepositoryIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	u := newUser("jdoe", "Jane", "Doe", strPtr("jane@example.com"))
	require.NoError(t, repo.Create(ctx, u))
	*u.Email = "changed@example.com"
	u.FirstName = "Changed"

	got, err := repo.GetByUPN(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "jane@example.com", *got.Email)

	*got.Email = "again@example.com"
	again, err := repo.GetByUPN(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", *again.Email)
}

func TestMemoryUserRepositoryKeepsInsertionOrderAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	for _, upn := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Create(ctx, newUser(upn, "F", "L", nil)))
	}
	require.NoError(t, repo.Delete(ctx, "b"))

	all, err := repo.List(ctx, query.Spec{})
	require.NoError(t, err)
	upns := make([]string, 0, len(all))
	for _, u := range all {
		upns = append(upns, u.UPN)
	}
	assert.Equal(t, []string{"a", "c", "d"}, upns)

	d, err := repo.GetByUPN(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "d", d.UPN)
	assert.Equal(t, 3, repo.Len())
}

func TestMemoryUserRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, newUser("same", "F", "L", nil)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}

func TestPostgresUserRepositoryContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE users`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `TRUNCATE TABLE users`) })

	runUserRepositoryContract(t, NewUserRepository(pool))
}

func TestRedisUserRepositoryContract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	key := "test:users:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	runUserRepositoryContract(t, NewRedisUserRepository(client, key))
}

func TestRedisUserCodecRoundTrip(t *testing.T) {
	u := newUser("jdoe", "Jane", "Doe", strPtr("jane@example.com"))
	data, err := encodeUser(u)
	require.NoError(t, err)
	assert.Contains(t, data, `"upn":"jdoe"`)
	assert.Contains(t, data, `"firstName":"Jane"`)

	back, err := decodeUser(data)
	require.NoError(t, err)
	assert.Equal(t, u.UPN, back.UPN)
	assert.True(t, u.CreatedDate.Equal(back.CreatedDate))

	_, err = decodeUser("{not json")
	assert.Error(t, err)
}
