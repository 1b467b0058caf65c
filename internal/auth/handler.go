package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/FasterSpeeding/PTF/internal/platform/httpx"
	"github.com/FasterSpeeding/PTF/internal/shared"
)

var usernamePattern = regexp.MustCompile(`^[\w\-\s]+$`)

// NewValidator returns the request validator with the username rule
// registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return validate
}

// RespondResolveError writes the envelope for a failed resolution.
// Challenge headers are attached to every 401 produced here.
func RespondResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrHeaderMissing):
		httpx.Unauthorized(w, "Missing authorization header")
	case errors.Is(err, ErrNotBasic):
		httpx.Unauthorized(w, "Expected a Basic authorization token")
	case errors.Is(err, ErrHeaderMalformed):
		httpx.Unauthorized(w, "Invalid authorization header")
	case errors.Is(err, ErrMismatch):
		httpx.Unauthorized(w, "Incorrect username or password")
	case errors.Is(err, ErrForbidden):
		httpx.Single(w, http.StatusForbidden, "You cannot perform this action")
	default:
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
	}
}

// RespondValidationError writes a 400 envelope with one error object per
// failed field.
func RespondValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := httpx.ErrorsResponse{}
	for _, fieldErr := range errs {
		response = response.WithError(httpx.ErrorObject{
			Status: http.StatusBadRequest,
			Detail: fieldErr.Error(),
			Source: &httpx.ErrorSource{Pointer: "/" + fieldErr.Field()},
		})
	}
	httpx.JSON(w, http.StatusBadRequest, response)
}

// Handler wires the authority's user endpoints.
type Handler struct {
	logger    *slog.Logger
	resolver  *Resolver
	users     UserRepository
	hasher    Hasher
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, users UserRepository, hasher Hasher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		resolver:  resolver,
		users:     users,
		hasher:    hasher,
		validator: NewValidator(),
	}
}

// MountRoutes registers user routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/@me", h.getCurrentUser)
	r.Post("/users", h.postUser)
	r.Patch("/users/@me", h.patchCurrentUser)
	r.Delete("/users/@me", h.deleteCurrentUser)
}

func (h *Handler) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.ResolveUser(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		RespondResolveError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type receivedUser struct {
	Flags    int64  `json:"flags" validate:"gte=0"`
	Password string `json:"password" validate:"required,min=8,max=120"`
	Username string `json:"username" validate:"required,min=3,max=32,username"`
}

func (h *Handler) postUser(w http.ResponseWriter, r *http.Request) {
	// Credentials first: anonymous callers get no validation feedback.
	if _, err := h.resolver.ResolveWithFlags(r.Context(), r.Header.Get("Authorization"), FlagCreateUsers); err != nil {
		RespondResolveError(w, err)
		return
	}

	var payload receivedUser
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Single(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		RespondValidationError(w, err.(validator.ValidationErrors))
		return
	}

	passwordHash, err := h.hasher.Hash(r.Context(), payload.Password)
	if err != nil {
		h.logger.Error("failed to hash password", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.users.Insert(r.Context(), payload.Flags, passwordHash, NormalizeUsername(payload.Username))
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			httpx.Single(w, http.StatusForbidden, "User already exists")
			return
		}
		h.logger.Error("failed to set user", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type userUpdate struct {
	Flags    *int64  `json:"flags" validate:"omitempty,gte=0"`
	Password *string `json:"password" validate:"omitempty,min=8,max=120"`
	Username *string `json:"username" validate:"omitempty,min=3,max=32,username"`
}

func (h *Handler) patchCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.ResolveUser(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		RespondResolveError(w, err)
		return
	}

	var payload userUpdate
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Single(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		RespondValidationError(w, err.(validator.ValidationErrors))
		return
	}

	update := UserUpdate{Flags: payload.Flags}
	if payload.Password != nil {
		passwordHash, err := h.hasher.Hash(r.Context(), *payload.Password)
		if err != nil {
			h.logger.Error("failed to hash password", slog.Any("error", err))
			httpx.Single(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		update.PasswordHash = &passwordHash
	}
	if payload.Username != nil {
		username := NormalizeUsername(*payload.Username)
		update.Username = &username
	}

	updated, err := h.users.Update(r.Context(), user.ID, update)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrConflict):
			httpx.Single(w, http.StatusForbidden, "User already exists")
		case errors.Is(err, shared.ErrNotFound):
			httpx.Single(w, http.StatusNotFound, "Couldn't find user")
		default:
			h.logger.Error("failed to update user", slog.Any("error", err))
			httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.ResolveUser(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		RespondResolveError(w, err)
		return
	}

	deleted, err := h.users.Delete(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to delete user entry", slog.Any("error", err))
		httpx.Single(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if !deleted {
		httpx.Single(w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
