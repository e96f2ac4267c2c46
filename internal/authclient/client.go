// Package authclient validates bearer tokens against the external auth
// service.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
)

const (
	validatePath   = "/api/v1/auth/validate"
	defaultTimeout = 5 * time.Second
)

// Claims is what the auth service returns for a valid token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type requestIDKey struct{}

// WithRequestID stores the request id forwarded to the auth service.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Client talks to the auth service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: defaultTimeout})
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ValidateToken resolves token to the caller's claims. A token the service
// rejects yields domain.ErrInvalidToken; anything else that goes wrong is an
// infrastructure error.
func (c *Client) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	body, err := json.Marshal(validateTokenRequest{Token: token})
	if err != nil {
		return nil, domain.NewInfrastructureError("auth: encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+validatePath, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewInfrastructureError("auth: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewInfrastructureError("auth: call service", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, domain.ErrInvalidToken
	default:
		return nil, domain.NewInfrastructureError("auth: call service", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, domain.NewInfrastructureError("auth: decode response", err)
	}
	if claims.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return &claims, nil
}
