// Package authclient calls the authority service on behalf of relying
// services. Credentials are forwarded untouched; failure responses are
// relayed so the caller cannot tell which service produced them.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FasterSpeeding/PTF/internal/auth"
	"github.com/FasterSpeeding/PTF/internal/link"
)

const defaultTimeout = 10 * time.Second

// Client resolves users and capability links against the authority's
// network API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client. A non-positive timeout falls back to
// the default; a hung authority must not tie up requests forever.
func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// relayError reconstructs an upstream failure response. The challenge
// is taken from the upstream header so it survives the relay.
func (c *Client) relayError(response *http.Response) error {
	body, err := io.ReadAll(response.Body)
	if err != nil {
		c.logger.Error("failed to read authority response", slog.Any("error", err))
		return ErrTransport
	}
	return &RelayedError{
		Status:      response.StatusCode,
		Body:        body,
		ContentType: response.Header.Get("Content-Type"),
		Challenge:   response.Header.Get("WWW-Authenticate"),
	}
}

func (c *Client) do(ctx context.Context, method, url, authorization string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("authclient: build request: %w", err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// ResolveUser asks the authority to authenticate the forwarded
// Authorization header and returns the current user.
func (c *Client) ResolveUser(ctx context.Context, authorization string) (*auth.User, error) {
	response, err := c.do(ctx, http.MethodGet, c.baseURL+"/users/@me", authorization, nil)
	if err != nil {
		c.logger.Error("user auth request failed", slog.Any("error", err))
		return nil, ErrTransport
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, c.relayError(response)
	}

	var user auth.User
	if err := json.NewDecoder(response.Body).Decode(&user); err != nil {
		c.logger.Error("failed to parse user auth response", slog.Any("error", err))
		return nil, ErrTransport
	}
	return &user, nil
}

// ResolveLink resolves a capability token scoped to a message. An
// upstream 404 is mapped to a locally synthesized 401-class failure so
// an unresolvable link is indistinguishable from not being authorized.
func (c *Client) ResolveLink(ctx context.Context, messageID uuid.UUID, token string) (*link.Link, error) {
	url := fmt.Sprintf("%s/messages/%s/links/%s", c.baseURL, messageID, token)
	response, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		c.logger.Error("link auth request failed", slog.Any("error", err))
		return nil, ErrTransport
	}
	defer func() { _ = response.Body.Close() }()

	switch response.StatusCode {
	case http.StatusOK:
		var entry link.Link
		if err := json.NewDecoder(response.Body).Decode(&entry); err != nil {
			c.logger.Error("failed to parse link auth response", slog.Any("error", err))
			return nil, ErrTransport
		}
		return &entry, nil

	case http.StatusNotFound:
		body, err := json.Marshal(map[string]any{
			"errors": []map[string]any{{"status": http.StatusUnauthorized, "detail": "Message link not found"}},
		})
		if err != nil {
			return nil, ErrTransport
		}
		return nil, &RelayedError{
			Status:      http.StatusUnauthorized,
			Body:        body,
			ContentType: "application/json",
		}

	default:
		return nil, c.relayError(response)
	}
}

// CreateLink asks the authority to create a link on behalf of the
// authenticated message owner.
func (c *Client) CreateLink(ctx context.Context, authorization string, messageID uuid.UUID) (*link.Link, error) {
	url := fmt.Sprintf("%s/users/@me/messages/%s/links", c.baseURL, messageID)
	response, err := c.do(ctx, http.MethodPost, url, authorization, []byte("{}"))
	if err != nil {
		c.logger.Error("failed to create message link", slog.Any("error", err))
		return nil, ErrTransport
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, c.relayError(response)
	}

	var entry link.Link
	if err := json.NewDecoder(response.Body).Decode(&entry); err != nil {
		c.logger.Error("failed to parse message link response", slog.Any("error", err))
		return nil, ErrTransport
	}
	return &entry, nil
}
