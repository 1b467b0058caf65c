package link

import (
	"time"

	"github.com/google/uuid"
)

// Access bitmask values. The manager only stores the mask; callers are
// responsible for enforcing it when serving a resource.
const (
	AccessRead  int16 = 1 << 0
	AccessWrite int16 = 1 << 1
)

// Link grants scoped, possibly time-limited access to one message
// without a session. The token doubles as identifier and bearer secret,
// and the owning message is immutable after creation.
type Link struct {
	Access    int16      `json:"access"`
	ExpiresAt *time.Time `json:"expires_at"`
	MessageID uuid.UUID  `json:"message_id"`
	Resource  *string    `json:"resource"`
	Token     string     `json:"token"`
}

// Expired reports whether the link's absolute expiry has been reached.
// The expiry instant itself counts as expired, matching the purge
// query's inclusive comparison.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// AllowsResource reports whether the link's resource sub-selector, when
// set, matches the requested resource.
func (l *Link) AllowsResource(resource string) bool {
	return l.Resource == nil || *l.Resource == resource
}
