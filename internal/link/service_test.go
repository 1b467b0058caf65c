package link_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/FasterSpeeding/PTF/internal/link"
	"github.com/FasterSpeeding/PTF/internal/shared"
	_ "github.com/FasterSpeeding/PTF/testing"
)

type stubRepo struct {
	links      map[string]link.Link
	insertErrs []error
	inserted   int
}

func newStubRepo(links ...link.Link) *stubRepo {
	s := &stubRepo{links: make(map[string]link.Link)}
	for _, entry := range links {
		s.links[entry.Token] = entry
	}
	return s
}

func (s *stubRepo) Get(ctx context.Context, messageID uuid.UUID, token string) (*link.Link, error) {
	entry, ok := s.links[token]
	if !ok || entry.MessageID != messageID {
		return nil, shared.ErrNotFound
	}
	return &entry, nil
}

func (s *stubRepo) GetByToken(ctx context.Context, token string) (*link.Link, error) {
	entry, ok := s.links[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &entry, nil
}

func (s *stubRepo) List(ctx context.Context, messageID uuid.UUID) ([]link.Link, error) {
	var out []link.Link
	for _, entry := range s.links {
		if entry.MessageID == messageID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubRepo) Insert(ctx context.Context, entry link.Link) error {
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.links[entry.Token] = entry
	s.inserted++
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, messageID uuid.UUID, token string) (bool, error) {
	entry, ok := s.links[token]
	if !ok || entry.MessageID != messageID {
		return false, nil
	}
	delete(s.links, token)
	return true, nil
}

func (s *stubRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	for token, entry := range s.links {
		if entry.Expired(now) {
			delete(s.links, token)
			purged++
		}
	}
	return purged, nil
}

func newTestCache(t *testing.T) *link.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return link.NewCache(client, time.Minute)
}

func TestNewTokenIsURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		token, err := link.NewToken()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		if len(token) != 43 {
			t.Fatalf("expected 43 characters for 32 bytes of entropy, got %d", len(token))
		}
		for _, r := range token {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				t.Fatalf("token contains non URL-safe character %q", r)
			}
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestManagerCreate(t *testing.T) {
	repo := newStubRepo()
	manager := link.NewManager(nil, repo, nil)
	messageID := uuid.New()
	resource := "notes.txt"

	entry, err := manager.Create(context.Background(), messageID, link.CreateParams{
		Access:   link.AccessRead,
		Resource: &resource,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Token == "" {
		t.Fatal("expected a generated token")
	}
	if entry.MessageID != messageID {
		t.Fatalf("expected message %s, got %s", messageID, entry.MessageID)
	}
	if entry.Resource == nil || *entry.Resource != "notes.txt" {
		t.Fatal("expected resource selector to be kept")
	}
}

func TestManagerCreateRetriesCollision(t *testing.T) {
	repo := newStubRepo()
	repo.insertErrs = []error{shared.ErrConflict, shared.ErrConflict}
	manager := link.NewManager(nil, repo, nil)

	if _, err := manager.Create(context.Background(), uuid.New(), link.CreateParams{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.inserted != 1 {
		t.Fatalf("expected exactly one stored row, got %d", repo.inserted)
	}
}

func TestManagerCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newStubRepo()
	repo.insertErrs = []error{shared.ErrConflict, shared.ErrConflict, shared.ErrConflict}
	manager := link.NewManager(nil, repo, nil)

	if _, err := manager.Create(context.Background(), uuid.New(), link.CreateParams{}); err == nil {
		t.Fatal("expected persistent collisions to fail")
	}
}

func TestManagerResolve(t *testing.T) {
	messageID := uuid.New()
	entry := link.Link{Access: link.AccessRead, MessageID: messageID, Token: "tok-alpha"}
	manager := link.NewManager(nil, newStubRepo(entry), nil)

	got, err := manager.Resolve(context.Background(), messageID, "tok-alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Token != "tok-alpha" {
		t.Fatalf("expected tok-alpha, got %q", got.Token)
	}

	if _, err := manager.Resolve(context.Background(), uuid.New(), "tok-alpha"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected foreign message to miss, got %v", err)
	}
	if _, err := manager.Resolve(context.Background(), messageID, "tok-other"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected unknown token to miss, got %v", err)
	}
}

func TestManagerResolveExpired(t *testing.T) {
	messageID := uuid.New()
	expired := time.Now().UTC().Add(-time.Minute)
	entry := link.Link{MessageID: messageID, Token: "tok-stale", ExpiresAt: &expired}
	manager := link.NewManager(nil, newStubRepo(entry), nil)

	if _, err := manager.Resolve(context.Background(), messageID, "tok-stale"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected expired link to read as missing, got %v", err)
	}
	if _, err := manager.ResolveToken(context.Background(), "tok-stale"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected expired link to read as missing by token, got %v", err)
	}
}

func TestManagerResolveUsesCache(t *testing.T) {
	messageID := uuid.New()
	entry := link.Link{Access: link.AccessRead, MessageID: messageID, Token: "tok-cached"}
	repo := newStubRepo(entry)
	cache := newTestCache(t)
	manager := link.NewManager(nil, repo, cache)

	if _, err := manager.Resolve(context.Background(), messageID, "tok-cached"); err != nil {
		t.Fatalf("warm resolve: %v", err)
	}

	// Drop the backing row; the cached copy should still serve.
	delete(repo.links, "tok-cached")
	got, err := manager.Resolve(context.Background(), messageID, "tok-cached")
	if err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if got.MessageID != messageID {
		t.Fatalf("expected message %s, got %s", messageID, got.MessageID)
	}
}

func TestManagerDeleteInvalidatesCache(t *testing.T) {
	messageID := uuid.New()
	entry := link.Link{MessageID: messageID, Token: "tok-gone"}
	repo := newStubRepo(entry)
	cache := newTestCache(t)
	manager := link.NewManager(nil, repo, cache)

	if _, err := manager.Resolve(context.Background(), messageID, "tok-gone"); err != nil {
		t.Fatalf("warm resolve: %v", err)
	}
	deleted, err := manager.Delete(context.Background(), messageID, "tok-gone")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected the row to be deleted")
	}
	if _, err := manager.Resolve(context.Background(), messageID, "tok-gone"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected deleted link to miss, got %v", err)
	}
}

func TestLinkExpiredAtExactInstant(t *testing.T) {
	now := time.Now().UTC()
	entry := link.Link{Token: "tok-edge", ExpiresAt: &now}

	// A link resolvable at its expiry instant would race the purge,
	// which deletes rows with expires_at <= now.
	if !entry.Expired(now) {
		t.Fatal("expected the expiry instant itself to count as expired")
	}
	if entry.Expired(now.Add(-time.Nanosecond)) {
		t.Fatal("expected the link to be live just before expiry")
	}
}

func TestManagerPurgeExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	repo := newStubRepo(
		link.Link{MessageID: uuid.New(), Token: "tok-old", ExpiresAt: &past},
		link.Link{MessageID: uuid.New(), Token: "tok-live", ExpiresAt: &future},
		link.Link{MessageID: uuid.New(), Token: "tok-forever"},
	)
	manager := link.NewManager(nil, repo, nil)

	purged, err := manager.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged link, got %d", purged)
	}
	if _, ok := repo.links["tok-live"]; !ok {
		t.Fatal("live link should survive the purge")
	}
}
