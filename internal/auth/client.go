package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"iap-service/internal/util"
)

// ErrUnauthenticated is returned when the credential is missing or the
// identity service rejects it.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified caller resolved by the identity service.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Client resolves authorization credentials against the external identity
// service. It holds no state beyond the HTTP client.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new identity service client
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// Authenticate resolves the Authorization header value into an Identity.
// A missing or rejected credential returns ErrUnauthenticated; every
// downstream step relies on the returned UserID being verified.
func (c *Client) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	if strings.TrimSpace(authorization) == "" {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthenticated
	default:
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}
	if identity.UserID == "" {
		c.logger.Warn("Identity service returned no user")
		return nil, ErrUnauthenticated
	}

	return &identity, nil
}
