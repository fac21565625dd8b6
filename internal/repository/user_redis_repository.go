package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/query"
)

// RedisUserRepository stores every user as one JSON value in a single Redis
// hash, keyed by UPN. Filtering happens in process after HVALS.
type RedisUserRepository struct {
	client *redis.Client
	key    string
}

// redisUser is the JSON document stored per hash field.
type redisUser struct {
	ID          string    `json:"id"`
	UPN         string    `json:"upn"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       *string   `json:"email,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// NewRedisUserRepository returns a store using the hash at key.
func NewRedisUserRepository(client *redis.Client, key string) *RedisUserRepository {
	return &RedisUserRepository{client: client, key: key}
}

func (r *RedisUserRepository) List(ctx context.Context, spec query.Spec) ([]domain.User, error) {
	values, err := r.client.HVals(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hvals failed: %w", err)
	}
	users := make([]domain.User, 0, len(values))
	for _, v := range values {
		u, err := decodeUser(v)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return query.Filter(users, spec, domain.UserMetadata), nil
}

func (r *RedisUserRepository) GetByUPN(ctx context.Context, upn string) (*domain.User, error) {
	v, err := r.client.HGet(ctx, r.key, upn).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}
	return decodeUser(v)
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	created, err := r.client.HSetNX(ctx, r.key, user.UPN, data).Result()
	if err != nil {
		return fmt.Errorf("redis hsetnx failed: %w", err)
	}
	if !created {
		return ErrDuplicate
	}
	return nil
}

// maxUpdateRetries bounds optimistic retries when another client changes the
// hash between WATCH and EXEC.
const maxUpdateRetries = 10

// Update reads, mutates and writes the document inside a WATCH transaction
// and retries when the hash changed underneath, so concurrent updates never
// merge into a stale copy and a concurrent delete is not resurrected.
func (r *RedisUserRepository) Update(ctx context.Context, upn string, mutate UserMutator) (*domain.User, error) {
	var updated *domain.User
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, r.key, upn).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis hget failed: %w", err)
		}
		stored, err := decodeUser(current)
		if err != nil {
			return err
		}
		next, err := applyMutator(*stored, mutate)
		if err != nil {
			return err
		}
		data, err := encodeUser(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, upn, data)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("redis update failed: %w", err)
	}
	return nil, fmt.Errorf("redis update failed: %w", redis.TxFailedErr)
}

func (r *RedisUserRepository) Delete(ctx context.Context, upn string) error {
	n, err := r.client.HDel(ctx, r.key, upn).Result()
	if err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeUser(u *domain.User) (string, error) {
	data, err := json.Marshal(redisUser{
		ID:          u.ID,
		UPN:         u.UPN,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		CreatedDate: u.CreatedDate,
		UpdatedDate: u.UpdatedDate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal user: %w", err)
	}
	return string(data), nil
}

func decodeUser(v string) (*domain.User, error) {
	var ru redisUser
	if err := json.Unmarshal([]byte(v), &ru); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user json: %w", err)
	}
	return &domain.User{
		ID:          ru.ID,
		UPN:         ru.UPN,
		FirstName:   ru.FirstName,
		LastName:    ru.LastName,
		Email:       ru.Email,
		CreatedDate: ru.CreatedDate.UTC(),
		UpdatedDate: ru.UpdatedDate.UTC(),
	}, nil
}
