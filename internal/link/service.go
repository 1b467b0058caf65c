package link

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FasterSpeeding/PTF/internal/shared"
)

// tokenBytes sizes the random token; 32 bytes of entropy keeps guessing
// infeasible since the token is a bearer secret, not just a lookup key.
const tokenBytes = 32

// insertAttempts bounds collision retries before giving up.
const insertAttempts = 3

// NewToken generates an opaque URL-safe token from a cryptographically
// secure source.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("link: read token bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateParams carries the caller-defined attributes of a new link.
type CreateParams struct {
	Access    int16
	ExpiresAt *time.Time
	Resource  *string
}

// Manager creates, resolves and deletes capability links. Expired links
// are rejected at resolution time with the same generic failure as an
// unknown token.
type Manager struct {
	logger *slog.Logger
	repo   Repository
	cache  *Cache
	now    func() time.Time
}

// NewManager constructs a Manager. The cache may be nil.
func NewManager(logger *slog.Logger, repo Repository, cache *Cache) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		repo:   repo,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create generates a fresh token and persists the link. A token
// collision is retried with a new token rather than overwriting the
// existing row.
func (m *Manager) Create(ctx context.Context, messageID uuid.UUID, params CreateParams) (*Link, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}
		entry := Link{
			Access:    params.Access,
			ExpiresAt: params.ExpiresAt,
			MessageID: messageID,
			Resource:  params.Resource,
			Token:     token,
		}
		err = m.repo.Insert(ctx, entry)
		if err == nil {
			return &entry, nil
		}
		if !errors.Is(err, shared.ErrConflict) {
			return nil, err
		}
		m.logger.Warn("link token collision, retrying", slog.Int("attempt", attempt+1))
	}
	return nil, errors.New("link: token collisions persisted")
}

// Resolve fetches a link scoped to its owning message. An unknown
// token, a token belonging to another message and an expired link all
// come back as shared.ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, messageID uuid.UUID, token string) (*Link, error) {
	if entry, ok := m.cache.Get(ctx, token); ok {
		if entry.MessageID != messageID || entry.Expired(m.now()) {
			return nil, shared.ErrNotFound
		}
		return entry, nil
	}

	entry, err := m.repo.Get(ctx, messageID, token)
	if err != nil {
		return nil, err
	}
	if entry.Expired(m.now()) {
		return nil, shared.ErrNotFound
	}
	m.cache.Set(ctx, entry)
	return entry, nil
}

// ResolveToken fetches a link by token alone (legacy form).
func (m *Manager) ResolveToken(ctx context.Context, token string) (*Link, error) {
	if entry, ok := m.cache.Get(ctx, token); ok {
		if entry.Expired(m.now()) {
			return nil, shared.ErrNotFound
		}
		return entry, nil
	}

	entry, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if entry.Expired(m.now()) {
		return nil, shared.ErrNotFound
	}
	m.cache.Set(ctx, entry)
	return entry, nil
}

// List returns every link attached to a message.
func (m *Manager) List(ctx context.Context, messageID uuid.UUID) ([]Link, error) {
	return m.repo.List(ctx, messageID)
}

// Delete removes a link; idempotent, reports whether a row existed.
func (m *Manager) Delete(ctx context.Context, messageID uuid.UUID, token string) (bool, error) {
	deleted, err := m.repo.Delete(ctx, messageID, token)
	if err != nil {
		return false, err
	}
	m.cache.Invalidate(ctx, token)
	return deleted, nil
}

// PurgeExpired removes links whose expiry has passed, returning the
// number of rows deleted.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}
