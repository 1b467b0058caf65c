package link

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/FasterSpeeding/PTF/internal/auth"
	"github.com/FasterSpeeding/PTF/internal/platform/httpx"
	"github.com/FasterSpeeding/PTF/internal/shared"
)

// Handler wires the authority's capability link endpoints.
type Handler struct {
	logger    *slog.Logger
	manager   *Manager
	resolver  *auth.Resolver
	messages  MessageDirectory
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, manager *Manager, resolver *auth.Resolver, messages MessageDirectory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		manager:   manager,
		resolver:  resolver,
		messages:  messages,
		validator: auth.NewValidator(),
	}
}

// MountRoutes registers link routes on the provided router. Both the
// path-embedded and query-parameter token forms are kept; legacy
// clients use each.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/links/{token}", h.getLinkByToken)
	r.Get("/messages/{messageID}/links/{token}", h.getMessageLink)
	r.Get("/messages/{messageID}/links", h.getMessageLinkByQuery)
	r.Post("/users/@me/messages/{messageID}/links", h.postMyMessageLink)
	r.Get("/users/@me/messages/{messageID}/links", h.getMyMessageLinks)
	r.Delete("/users/@me/messages/{messageID}/links", h.deleteMyMessageLink)
}

// tokenFromQuery accepts both legacy parameter spellings.
func tokenFromQuery(r *http.Request) string {
	if token := r.URL.Query().Get("link"); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func messageIDFromURL(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "messageID"))
	return id, err == nil
}

func (h *Handler) respondResolved(w http.ResponseWriter, entry *Link, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, entry)
	case errors.Is(err, shared.ErrNotFound):
		httpx.Single(w, http.StatusNotFound, "Link not found")
	default:
		h.logger.Error("failed to get message link from db", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) getLinkByToken(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manager.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	h.respondResolved(w, entry, err)
}

func (h *Handler) getMessageLink(w http.ResponseWriter, r *http.Request) {
	messageID, ok := messageIDFromURL(r)
	if !ok {
		httpx.Single(w, http.StatusNotFound, "Link not found")
		return
	}
	entry, err := h.manager.Resolve(r.Context(), messageID, chi.URLParam(r, "token"))
	h.respondResolved(w, entry, err)
}

func (h *Handler) getMessageLinkByQuery(w http.ResponseWriter, r *http.Request) {
	messageID, ok := messageIDFromURL(r)
	token := tokenFromQuery(r)
	if !ok || token == "" {
		httpx.Single(w, http.StatusNotFound, "Link not found")
		return
	}
	entry, err := h.manager.Resolve(r.Context(), messageID, token)
	h.respondResolved(w, entry, err)
}

// resolveOwner authenticates the caller and checks message ownership.
// A missing message and a foreign message are both reported as 404 so
// message ids cannot be probed.
func (h *Handler) resolveOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	messageID, ok := messageIDFromURL(r)
	if !ok {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return uuid.Nil, false
	}

	user, err := h.resolver.ResolveUser(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		auth.RespondResolveError(w, err)
		return uuid.Nil, false
	}

	owner, err := h.messages.GetMessageOwner(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Single(w, http.StatusNotFound, "Message not found")
		} else {
			h.logger.Error("failed to get message from db", slog.Any("error", err))
			httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		}
		return uuid.Nil, false
	}
	if owner != user.ID {
		httpx.Single(w, http.StatusNotFound, "Message not found")
		return uuid.Nil, false
	}
	return messageID, true
}

type receivedLink struct {
	Access      int16   `json:"access" validate:"gte=0"`
	ExpireAfter *string `json:"expire_after" validate:"omitempty"`
	Resource    *string `json:"resource" validate:"omitempty,min=1,max=120"`
}

func (h *Handler) postMyMessageLink(w http.ResponseWriter, r *http.Request) {
	messageID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	payload := receivedLink{Access: AccessRead}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Single(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		auth.RespondValidationError(w, err.(validator.ValidationErrors))
		return
	}

	params := CreateParams{Access: payload.Access, Resource: payload.Resource}
	if payload.ExpireAfter != nil {
		expireAfter, err := time.ParseDuration(*payload.ExpireAfter)
		if err != nil || expireAfter <= 0 {
			httpx.JSON(w, http.StatusBadRequest, httpx.ErrorsResponse{}.WithError(httpx.ErrorObject{
				Status: http.StatusBadRequest,
				Detail: "Invalid duration",
				Source: &httpx.ErrorSource{Pointer: "/expire_after"},
			}))
			return
		}
		expiresAt := time.Now().UTC().Add(expireAfter)
		params.ExpiresAt = &expiresAt
	}

	entry, err := h.manager.Create(r.Context(), messageID, params)
	if err != nil {
		h.logger.Error("failed to set message link", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) getMyMessageLinks(w http.ResponseWriter, r *http.Request) {
	messageID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	links, err := h.manager.List(r.Context(), messageID)
	if err != nil {
		h.logger.Error("failed to get message links from database", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func (h *Handler) deleteMyMessageLink(w http.ResponseWriter, r *http.Request) {
	messageID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	token := tokenFromQuery(r)
	if token == "" {
		httpx.Single(w, http.StatusNotFound, "Message link not found")
		return
	}

	deleted, err := h.manager.Delete(r.Context(), messageID, token)
	if err != nil {
		h.logger.Error("failed to delete link entry", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Failed to delete link")
		return
	}
	if !deleted {
		httpx.Single(w, http.StatusNotFound, "Message link not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
