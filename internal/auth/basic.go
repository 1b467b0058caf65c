package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

const basicPrefixLen = len("Basic ")

// Credentials is a username/password pair decoded from a Basic header.
// It is ephemeral: never persisted and never logged.
type Credentials struct {
	Username string
	Password string
}

// DecodeBasic parses an Authorization header value of the Basic scheme
// into credentials. The scheme token is matched case-insensitively with
// exactly one space, the payload must be valid base64 text, and the
// decoded bytes are split on the first colon into a non-empty username
// and non-empty password. The codec holds no state.
func DecodeBasic(headerValue string) (Credentials, error) {
	if headerValue == "" {
		return Credentials{}, ErrHeaderMissing
	}
	if len(headerValue) < basicPrefixLen+1 {
		return Credentials{}, ErrHeaderMalformed
	}
	if !strings.EqualFold(headerValue[:basicPrefixLen], "Basic ") {
		return Credentials{}, ErrNotBasic
	}

	decoded, err := base64.StdEncoding.DecodeString(headerValue[basicPrefixLen:])
	if err != nil {
		return Credentials{}, ErrHeaderMalformed
	}
	if !utf8.Valid(decoded) {
		return Credentials{}, ErrHeaderMalformed
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found || username == "" || password == "" {
		return Credentials{}, ErrHeaderMalformed
	}
	return Credentials{Username: username, Password: password}, nil
}
