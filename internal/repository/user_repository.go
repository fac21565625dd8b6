package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/query"
)

var (
	// ErrNotFound is returned when no user has the requested UPN.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when a user with the same UPN already exists.
	ErrDuplicate = errors.New("repository: duplicate key")
)

const uniqueViolation = "23505"

// UserRepository defines persistence access for users keyed by UPN.
// Implementations return ErrNotFound and ErrDuplicate for the respective
// conditions, and never share mutable state with callers.
type UserRepository interface {
	List(ctx context.Context, spec query.Spec) ([]domain.User, error)
	GetByUPN(ctx context.Context, upn string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, upn string, mutate UserMutator) (*domain.User, error)
	Delete(ctx context.Context, upn string) error
}

// UserMutator edits a stored user in place. Update runs it while no other
// writer can change the same record, and may run it more than once when a
// store retries on contention. ID, UPN and CreatedDate changes are discarded.
type UserMutator func(user *domain.User) error

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, upn, first_name, last_name, email, created_date, updated_date`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const stmt = `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, stmt,
		user.ID,
		user.UPN,
		user.FirstName,
		user.LastName,
		user.Email,
		user.CreatedDate,
		user.UpdatedDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, upn string, mutate UserMutator) (*domain.User, error) {
	const (
		selectStmt = `SELECT ` + userColumns + ` FROM users WHERE upn=$1 FOR UPDATE`
		updateStmt = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, updated_date=$4
        WHERE upn=$5`
	)

	var updated *domain.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, selectStmt, upn))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		next, err := applyMutator(*user, mutate)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, updateStmt,
			next.FirstName,
			next.LastName,
			next.Email,
			next.UpdatedDate,
			upn,
		); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *userRepository) Delete(ctx context.Context, upn string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE upn=$1`, upn)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByUPN(ctx context.Context, upn string) (*domain.User, error) {
	const stmt = `SELECT ` + userColumns + ` FROM users WHERE upn=$1`

	user, err := scanUser(r.pool.QueryRow(ctx, stmt, upn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, spec query.Spec) ([]domain.User, error) {
	where, args := query.WhereClause(spec, domain.UserMetadata, nil)
	sql := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY created_date, id`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

// applyMutator runs mutate on a copy of stored and restores the attributes
// no update may change.
func applyMutator(stored domain.User, mutate UserMutator) (*domain.User, error) {
	next := cloneUser(stored)
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = stored.ID
	next.UPN = stored.UPN
	next.CreatedDate = stored.CreatedDate
	return &next, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.UPN,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.CreatedDate,
		&user.UpdatedDate,
	); err != nil {
		return nil, err
	}
	user.CreatedDate = user.CreatedDate.UTC()
	user.UpdatedDate = user.UpdatedDate.UTC()
	return &user, nil
}
