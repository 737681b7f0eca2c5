package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurehub/procurehub/internal/platform/db"
	"github.com/procurehub/procurehub/internal/shared"
)

const (
	uniqueViolation          = "23505"
	usernameUniqueConstraint = "users_username_key"
	emailUniqueConstraint    = "users_email_key"
)

// Repository defines the credential store used by the gate.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, in NewUser) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, hashed_password, is_active, created_at, updated_at`

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrStorage, err)
	}
	return user, nil
}

// Insert creates a user in its own transaction. Nothing is left behind on failure.
func (r *PGRepository) Insert(ctx context.Context, in NewUser) (*User, error) {
	var user *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, hashed_password)
			VALUES ($1, $2, $3)
			RETURNING `+userColumns, in.Username, in.Email, in.PasswordHash)
		created, err := scanUser(row)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, translateInsertError(err)
	}
	return user, nil
}

// SetActive toggles the active flag. Used by administrative tooling only.
func (r *PGRepository) SetActive(ctx context.Context, username string, active bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE username = $1`, username, active)
		if err != nil {
			return fmt.Errorf("%w: set active: %v", ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// List returns all users ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrStorage, err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrStorage, err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrStorage, err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user      User
		updatedAt *time.Time
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	user.UpdatedAt = updatedAt
	return &user, nil
}

func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameUniqueConstraint:
			return ErrDuplicateUsername
		case emailUniqueConstraint:
			return ErrDuplicateEmail
		}
	}
	return fmt.Errorf("%w: insert user: %v", ErrStorage, err)
}

var _ Repository = (*PGRepository)(nil)
