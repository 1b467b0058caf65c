package link

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FasterSpeeding/PTF/internal/shared"
)

// Repository defines persistence operations for capability links.
type Repository interface {
	Get(ctx context.Context, messageID uuid.UUID, token string) (*Link, error)
	GetByToken(ctx context.Context, token string) (*Link, error)
	List(ctx context.Context, messageID uuid.UUID) ([]Link, error)
	Insert(ctx context.Context, link Link) error
	Delete(ctx context.Context, messageID uuid.UUID, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MessageDirectory is the narrow message-ownership contract the
// authority consumes when managing links on behalf of an owner.
type MessageDirectory interface {
	GetMessageOwner(ctx context.Context, messageID uuid.UUID) (uuid.UUID, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL link repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const linkColumns = "access, expires_at, message_id, resource, token"

func scanLink(row pgx.Row) (*Link, error) {
	var entry Link
	if err := row.Scan(&entry.Access, &entry.ExpiresAt, &entry.MessageID, &entry.Resource, &entry.Token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Get fetches a link scoped to its owning message.
func (r *PGRepository) Get(ctx context.Context, messageID uuid.UUID, token string) (*Link, error) {
	row := r.pool.QueryRow(
		ctx,
		"SELECT "+linkColumns+" FROM message_links WHERE message_id=$1 AND token=$2",
		messageID, token,
	)
	return scanLink(row)
}

// GetByToken fetches a link by token alone (legacy resolution form).
func (r *PGRepository) GetByToken(ctx context.Context, token string) (*Link, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+linkColumns+" FROM message_links WHERE token=$1", token)
	return scanLink(row)
}

// List returns every link attached to a message.
func (r *PGRepository) List(ctx context.Context, messageID uuid.UUID) ([]Link, error) {
	rows, err := r.pool.Query(
		ctx,
		"SELECT "+linkColumns+" FROM message_links WHERE message_id=$1 ORDER BY token",
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var entry Link
		if err := rows.Scan(&entry.Access, &entry.ExpiresAt, &entry.MessageID, &entry.Resource, &entry.Token); err != nil {
			return nil, err
		}
		links = append(links, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

// Insert persists a new link, reporting shared.ErrConflict when the
// token already exists so the caller can retry with a fresh one.
func (r *PGRepository) Insert(ctx context.Context, link Link) error {
	_, err := r.pool.Exec(
		ctx,
		"INSERT INTO message_links (access, expires_at, message_id, resource, token) VALUES ($1, $2, $3, $4, $5)",
		link.Access, link.ExpiresAt, link.MessageID, link.Resource, link.Token,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return err
	}
	return nil
}

// Delete removes a link, reporting whether a row existed.
func (r *PGRepository) Delete(ctx context.Context, messageID uuid.UUID, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM message_links WHERE message_id=$1 AND token=$2", messageID, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired removes every link whose expiry has passed.
func (r *PGRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM message_links WHERE expires_at IS NOT NULL AND expires_at <= $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PGMessageDirectory implements MessageDirectory against the messages
// table owned by the message store.
type PGMessageDirectory struct {
	pool *pgxpool.Pool
}

// NewMessageDirectory constructs a PostgreSQL message directory.
func NewMessageDirectory(pool *pgxpool.Pool) *PGMessageDirectory {
	return &PGMessageDirectory{pool: pool}
}

// GetMessageOwner returns the owning user of a message.
func (d *PGMessageDirectory) GetMessageOwner(ctx context.Context, messageID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	if err := d.pool.QueryRow(ctx, "SELECT user_id FROM messages WHERE id=$1", messageID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return owner, nil
}

var (
	_ Repository       = (*PGRepository)(nil)
	_ MessageDirectory = (*PGMessageDirectory)(nil)
)
