package auth

import "errors"

// Resolution failures. Handlers map these onto the wire envelope; the
// distinction between an unknown username and a wrong password is
// deliberately collapsed into ErrMismatch so that account existence
// cannot be probed through the response.
var (
	ErrHeaderMissing   = errors.New("missing authorization header")
	ErrHeaderMalformed = errors.New("invalid authorization header")
	ErrNotBasic        = errors.New("expected a Basic authorization token")
	ErrMismatch        = errors.New("incorrect username or password")
	ErrForbidden       = errors.New("missing permissions required to perform this action")
)

// HashError reports a hashing backend failure or a stored hash that
// could not be parsed. It is distinct from a mismatch so that data
// corruption surfaces in logs instead of reading as a wrong password.
type HashError struct {
	Message string
}

func (e *HashError) Error() string {
	return e.Message
}
