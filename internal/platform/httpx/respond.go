// Package httpx provides HTTP response utilities shared by the authority
// and relying services so failures look identical regardless of origin.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorObject is one entry of the wire error envelope.
type ErrorObject struct {
	Code   string            `json:"code,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Status int               `json:"status,omitempty"`
	Title  string            `json:"title,omitempty"`
	Source *ErrorSource      `json:"source,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// ErrorSource points at the request field or parameter that failed.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// ErrorsResponse is the canonical error envelope. It is the only error
// contract clients should depend on.
type ErrorsResponse struct {
	Errors []ErrorObject `json:"errors"`
}

// WithError appends an error object to the envelope.
func (r ErrorsResponse) WithError(err ErrorObject) ErrorsResponse {
	r.Errors = append(r.Errors, err)
	return r
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Single sends the common one-error envelope.
func Single(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorsResponse{}.WithError(ErrorObject{Status: status, Detail: detail}))
}

// Unauthorized sends a 401 envelope with the Basic challenge attached.
// Every 401 leaving either service goes through here or through a relay
// that preserves the upstream challenge.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Basic")
	Single(w, http.StatusUnauthorized, detail)
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
