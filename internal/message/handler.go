package message

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FasterSpeeding/PTF/internal/auth"
	"github.com/FasterSpeeding/PTF/internal/authclient"
	"github.com/FasterSpeeding/PTF/internal/link"
	"github.com/FasterSpeeding/PTF/internal/platform/httpx"
	"github.com/FasterSpeeding/PTF/internal/shared"
)

// Authority is the delegation contract the gateway relies on instead of
// verifying credentials itself.
type Authority interface {
	ResolveUser(ctx context.Context, authorization string) (*auth.User, error)
	ResolveLink(ctx context.Context, messageID uuid.UUID, token string) (*link.Link, error)
	CreateLink(ctx context.Context, authorization string, messageID uuid.UUID) (*link.Link, error)
}

// Handler wires the gateway's message endpoints. Every read is gated by
// the authority, either through forwarded Basic credentials or through
// a capability token.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	authority Authority
	now       func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, authority Authority) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		repo:      repo,
		authority: authority,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MountRoutes registers message routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/messages/{messageID}", h.getMessage)
	r.Get("/messages/{messageID}/files/{fileName}", h.getMessageFile)
	r.Post("/messages/{messageID}/links", h.postMessageLink)
}

// tokenFromQuery accepts both legacy parameter spellings.
func tokenFromQuery(r *http.Request) string {
	if token := r.URL.Query().Get("link"); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// authHeader extracts the raw Authorization value, presence-checking
// only; the credentials themselves are never inspected here.
func authHeader(w http.ResponseWriter, r *http.Request) (string, bool) {
	value := r.Header.Get("Authorization")
	if value == "" {
		httpx.Unauthorized(w, "Missing authorization header")
		return "", false
	}
	return value, true
}

func messageIDFromURL(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "messageID"))
	return id, err == nil
}

// grant is a successful authorization outcome: either an authenticated
// user or a resolved capability link, never both.
type grant struct {
	user *auth.User
	link *link.Link
}

// allowsMessage reports whether the grant covers the given message.
func (g *grant) allowsMessage(entry *Message) bool {
	if g.user != nil {
		return g.user.ID == entry.UserID
	}
	return true
}

// authorize resolves the caller's standing before any message row is
// read, so an unauthenticated caller learns nothing about which ids
// exist. resource names the file being read, empty for the message
// itself.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, messageID uuid.UUID, resource string) (*grant, bool) {
	if token := tokenFromQuery(r); token != "" {
		resolved, err := h.authority.ResolveLink(r.Context(), messageID, token)
		if err != nil {
			authclient.WriteError(w, err)
			return nil, false
		}
		if resolved.Access&link.AccessRead == 0 || !resolved.AllowsResource(resource) {
			httpx.Single(w, http.StatusForbidden, "You cannot perform this action")
			return nil, false
		}
		return &grant{link: resolved}, true
	}

	value, ok := authHeader(w, r)
	if !ok {
		return nil, false
	}
	user, err := h.authority.ResolveUser(r.Context(), value)
	if err != nil {
		authclient.WriteError(w, err)
		return nil, false
	}
	return &grant{user: user}, true
}

// getEntry loads the message, treating a lapsed message like a missing
// one.
func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request, messageID uuid.UUID) (*Message, bool) {
	entry, err := h.repo.GetMessage(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Single(w, http.StatusNotFound, "Message not found")
		} else {
			h.logger.Error("failed to get message from db", slog.Any("error", err))
			httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		}
		return nil, false
	}
	if entry.Expired(h.now()) {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return nil, false
	}
	return entry, true
}

func (h *Handler) getMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := messageIDFromURL(r)
	if !ok {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return
	}
	authz, ok := h.authorize(w, r, messageID, "")
	if !ok {
		return
	}
	entry, ok := h.getEntry(w, r, messageID)
	if !ok {
		return
	}
	if !authz.allowsMessage(entry) {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) getMessageFile(w http.ResponseWriter, r *http.Request) {
	messageID, ok := messageIDFromURL(r)
	if !ok {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return
	}
	fileName := chi.URLParam(r, "fileName")
	authz, ok := h.authorize(w, r, messageID, fileName)
	if !ok {
		return
	}
	entry, ok := h.getEntry(w, r, messageID)
	if !ok {
		return
	}
	if !authz.allowsMessage(entry) {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return
	}

	file, err := h.repo.GetFile(r.Context(), entry.ID, fileName)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Single(w, http.StatusNotFound, "File not found")
		} else {
			h.logger.Error("failed to get file from db", slog.Any("error", err))
			httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

func (h *Handler) postMessageLink(w http.ResponseWriter, r *http.Request) {
	messageID, ok := messageIDFromURL(r)
	if !ok {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return
	}
	value, ok := authHeader(w, r)
	if !ok {
		return
	}

	created, err := h.authority.CreateLink(r.Context(), value, messageID)
	if err != nil {
		authclient.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, created)
}
