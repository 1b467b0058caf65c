package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FasterSpeeding/PTF/internal/shared"
)

// UserUpdate carries the mutable user fields; nil means unchanged.
type UserUpdate struct {
	Flags        *int64
	PasswordHash *string
	Username     *string
}

// UserRepository is the narrow user-directory contract consumed by the
// resolver and handlers. Storage errors pass through opaquely and are
// downgraded to internal failures at the boundary.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, flags int64, passwordHash, username string) (*User, error)
	Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// PGUserRepository implements UserRepository using PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a PostgreSQL user repository.
func NewUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

const userColumns = "id, created_at, flags, password_hash, username"

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.Flags, &user.PasswordHash, &user.Username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID fetches a user by id.
func (r *PGUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id=$1", id)
	return scanUser(row)
}

// GetByUsername fetches a user by its unique username.
func (r *PGUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username=$1", username)
	return scanUser(row)
}

// Insert persists a new user, reporting shared.ErrConflict when the
// username is already taken.
func (r *PGUserRepository) Insert(ctx context.Context, flags int64, passwordHash, username string) (*User, error) {
	row := r.pool.QueryRow(
		ctx,
		"INSERT INTO users (id, flags, password_hash, username) VALUES ($1, $2, $3, $4) RETURNING "+userColumns,
		uuid.New(), flags, passwordHash, username,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return user, nil
}

// Update applies the set fields and returns the updated row.
func (r *PGUserRepository) Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*User, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users SET
			flags = COALESCE($2, flags),
			password_hash = COALESCE($3, password_hash),
			username = COALESCE($4, username)
		WHERE id = $1 RETURNING `+userColumns,
		id, update.Flags, update.PasswordHash, update.Username,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return user, nil
}

// Delete removes a user, reporting whether a row existed.
func (r *PGUserRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id=$1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
