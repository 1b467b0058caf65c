package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FasterSpeeding/PTF/internal/observability"
	"github.com/FasterSpeeding/PTF/internal/shared"
)

// Resolver turns a raw Authorization header into an authenticated user.
// It only runs inside the authority service; relying services delegate
// over the network instead.
type Resolver struct {
	logger  *slog.Logger
	users   UserRepository
	hasher  Hasher
	metrics *observability.Metrics
}

// NewResolver constructs a Resolver.
func NewResolver(logger *slog.Logger, users UserRepository, hasher Hasher) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, users: users, hasher: hasher}
}

// WithMetrics attaches resolution metrics; nil is allowed.
func (r *Resolver) WithMetrics(metrics *observability.Metrics) *Resolver {
	r.metrics = metrics
	return r
}

// ResolveUser decodes the header, looks the account up and verifies the
// password. An unknown username and a wrong password both come back as
// ErrMismatch. A corrupt stored hash or a storage error is logged here
// and surfaced as an internal failure, never as a mismatch.
func (r *Resolver) ResolveUser(ctx context.Context, headerValue string) (*User, error) {
	credentials, err := DecodeBasic(headerValue)
	if err != nil {
		r.metrics.ObserveAuthOutcome("malformed")
		return nil, err
	}

	user, err := r.users.GetByUsername(ctx, NormalizeUsername(credentials.Username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.metrics.ObserveAuthOutcome("mismatch")
			return nil, ErrMismatch
		}
		r.logger.Error("failed to get user from database", slog.Any("error", err))
		r.metrics.ObserveAuthOutcome("error")
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	start := time.Now()
	ok, err := r.hasher.Verify(ctx, user.PasswordHash, credentials.Password)
	r.metrics.ObserveHashDuration(time.Since(start))
	if err != nil {
		r.logger.Error("failed to check password", slog.Any("error", err))
		r.metrics.ObserveAuthOutcome("error")
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		r.metrics.ObserveAuthOutcome("mismatch")
		return nil, ErrMismatch
	}
	r.metrics.ObserveAuthOutcome("success")
	return user, nil
}

// ResolveWithFlags authenticates like ResolveUser then requires every
// wanted flag bit (or the admin bit). An authenticated user without the
// flags fails with ErrForbidden, which is never conflated with an
// authentication failure.
func (r *Resolver) ResolveWithFlags(ctx context.Context, headerValue string, flags int64) (*User, error) {
	user, err := r.ResolveUser(ctx, headerValue)
	if err != nil {
		return nil, err
	}
	if !user.HasFlags(flags) {
		return nil, ErrForbidden
	}
	return user, nil
}
