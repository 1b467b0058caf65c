package authclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/FasterSpeeding/PTF/internal/platform/httpx"
)

// ErrTransport indicates no response was obtained from the authority.
// These calls are not safe to retry blindly, so a transport failure is
// terminal for the request.
var ErrTransport = errors.New("authority request failed")

// RelayedError carries an authority failure response so the relying
// service can replay it byte-identically to its own caller.
type RelayedError struct {
	Status      int
	Body        []byte
	ContentType string
	Challenge   string
}

func (e *RelayedError) Error() string {
	return fmt.Sprintf("authority responded with status %d", e.Status)
}

// WriteError shapes a client failure onto the relying service's own
// response. Relayed failures pass through unchanged apart from
// normalizing the challenge header on 401s; anything else is downgraded
// to a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	var relayed *RelayedError
	if !errors.As(err, &relayed) {
		httpx.Single(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	challenge := relayed.Challenge
	if challenge == "" && relayed.Status == http.StatusUnauthorized {
		challenge = "Basic"
	}
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	if relayed.ContentType != "" {
		w.Header().Set("Content-Type", relayed.ContentType)
	}
	w.WriteHeader(relayed.Status)
	_, _ = w.Write(relayed.Body)
}
