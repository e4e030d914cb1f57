package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
)

const (
	userColumns = `id, email, name, password_hash, created_at`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	createUserSQL = `INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	uniqueViolation = "23505"
)

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository implements auth.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByEmail looks up a user by normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// GetByID looks up a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*auth.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[auth.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}
