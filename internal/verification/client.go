// Package verification is the HTTP client for the identity verification
// subsystem. Screening only consumes a boolean plus the subsystem's own
// status string; everything else about verification lives in that service.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("verification base url is required")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type verificationResponse struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
}

// IsVerified asks the verification service about one user. The status string
// is returned verbatim so callers can surface it to the user.
func (c *Client) IsVerified(ctx context.Context, userID id.UserID) (bool, string, error) {
	url := fmt.Sprintf("%s/v1/users/%s/verification", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", fmt.Errorf("build verification request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "verification service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// no verification record yet
		return false, "not_submitted", nil
	default:
		c.logger.ErrorContext(ctx, "verification service returned unexpected status",
			"status", resp.StatusCode, "user_id", userID)
		return false, "", dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("verification service returned status %d", resp.StatusCode))
	}

	var body verificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "invalid verification response")
	}
	return body.Verified, body.Status, nil
}
