package message

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FasterSpeeding/PTF/internal/shared"
)

// Repository defines the narrow read surface the gateway needs.
type Repository interface {
	GetMessage(ctx context.Context, messageID uuid.UUID) (*Message, error)
	GetFile(ctx context.Context, messageID uuid.UUID, fileName string) (*File, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL message repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetMessage fetches a message by id.
func (r *PGRepository) GetMessage(ctx context.Context, messageID uuid.UUID) (*Message, error) {
	var entry Message
	err := r.pool.QueryRow(
		ctx,
		"SELECT id, created_at, expires_at, text, title, user_id FROM messages WHERE id=$1",
		messageID,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.ExpiresAt, &entry.Text, &entry.Title, &entry.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetFile fetches the metadata of one attached file.
func (r *PGRepository) GetFile(ctx context.Context, messageID uuid.UUID, fileName string) (*File, error) {
	var entry File
	err := r.pool.QueryRow(
		ctx,
		"SELECT content_type, file_name, message_id, set_at FROM files WHERE message_id=$1 AND file_name=$2",
		messageID, fileName,
	).Scan(&entry.ContentType, &entry.FileName, &entry.MessageID, &entry.SetAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

var _ Repository = (*PGRepository)(nil)
