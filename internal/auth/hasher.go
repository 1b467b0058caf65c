package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// Hasher derives and verifies password hashes. Both operations are
// CPU-bound and must not run unbounded on the request path.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, encoded, password string) (bool, error)
}

// Interactive-cost Argon2id parameters.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Argon2Hasher implements Hasher with Argon2id. Hashes are encoded in
// the self-delimiting PHC string format so parameters and salt travel
// with the stored value. A weighted semaphore bounds how many
// derivations run at once, sized independently of HTTP concurrency so a
// burst of login attempts cannot starve unrelated requests.
type Argon2Hasher struct {
	sem *semaphore.Weighted
}

// NewArgon2Hasher constructs a hasher allowing up to workers concurrent
// derivations. A non-positive value falls back to the CPU count.
func NewArgon2Hasher(workers int64) *Argon2Hasher {
	if workers <= 0 {
		workers = int64(runtime.NumCPU())
	}
	return &Argon2Hasher{sem: semaphore.NewWeighted(workers)}
}

// Hash derives an Argon2id hash of password with a fresh random salt.
func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", &HashError{Message: fmt.Sprintf("failed to read salt: %v", err)}
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify recomputes the hash using the parameters embedded in encoded
// and compares in constant time. A mismatch returns (false, nil); a
// stored hash that cannot be parsed returns a HashError instead, so
// corrupt rows are not reported as wrong passwords.
func (h *Argon2Hasher) Verify(ctx context.Context, encoded, password string) (bool, error) {
	memory, time, threads, salt, want, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// parseArgon2 splits a PHC string of the form
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
func parseArgon2(encoded string) (memory, time uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, &HashError{Message: "invalid stored hash"}
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, &HashError{Message: "unsupported hash version"}
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &p); err != nil {
		return 0, 0, 0, nil, nil, &HashError{Message: "invalid stored hash parameters"}
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, &HashError{Message: "invalid stored hash salt"}
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, &HashError{Message: "invalid stored hash value"}
	}
	return memory, time, uint8(p), salt, key, nil
}

var _ Hasher = (*Argon2Hasher)(nil)
