package message

import (
	"time"

	"github.com/google/uuid"
)

// Message is the relying service's view of a stored message.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Text      *string    `json:"text"`
	Title     *string    `json:"title"`
	UserID    uuid.UUID  `json:"user_id"`
}

// Expired reports whether the message itself has lapsed. The expiry
// instant counts as lapsed.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// File is the stored metadata of a file attached to a message. Blob
// retrieval lives in the file store, not here.
type File struct {
	ContentType string    `json:"content_type"`
	FileName    string    `json:"file_name"`
	MessageID   uuid.UUID `json:"message_id"`
	SetAt       time.Time `json:"set_at"`
}
