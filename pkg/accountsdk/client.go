package accountsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the accounts service. It performs the unauthenticated
// operations and hands out Sessions for the rest.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for baseURL, which should include any API
// prefix the server is configured with.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account. No token is issued; call Login afterwards.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/register", "", req)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a Session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, *LoginData, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/login", "", LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}

	expiresAt, _ := out.Data.ExpiresAt()
	return c.NewSession(out.Data.Token, expiresAt), &out.Data, nil
}

// NewSession wraps a token obtained elsewhere.
func (c *SDKClient) NewSession(token string, expiresAt time.Time) *Session {
	return &Session{client: c, token: token, expiresAt: expiresAt}
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetJWKS retrieves the keys that verify JWT access tokens.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
