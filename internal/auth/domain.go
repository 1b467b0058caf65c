package auth

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// User permission flag bits.
const (
	// FlagAdmin grants every permission implicitly.
	FlagAdmin int64 = 1 << 1
	// FlagCreateUsers permits creating new accounts.
	FlagCreateUsers int64 = 1 << 2
)

// User is an account stored by the authority service. The password hash
// is never serialized; there is no read path that exposes it to clients.
type User struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Flags        int64     `json:"flags"`
	PasswordHash string    `json:"-"`
	Username     string    `json:"username"`
}

// HasFlags reports whether the user carries all wanted flag bits or the
// admin bit.
func (u *User) HasFlags(flags int64) bool {
	return u.Flags&flags == flags || u.Flags&FlagAdmin == FlagAdmin
}

// NormalizeUsername puts a username into NFC form so that lookups and
// uniqueness checks are insensitive to Unicode encoding variants.
func NormalizeUsername(username string) string {
	return norm.NFC.String(username)
}
