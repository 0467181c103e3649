package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayClient talks to the external session layer. The sim core never
// authenticates players itself; it only asks the gateway which account a
// session token belongs to.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Identity is the gateway's answer for a valid session token.
type Identity struct {
	AccountID int64  `json:"account_id"`
	Handle    string `json:"handle"`
}

func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// VerifySession resolves a session token to an account identity. Any non-200
// answer means the token is invalid or expired.
func (c *GatewayClient) VerifySession(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/session", nil)
	if err != nil {
		return Identity{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("verify session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Identity{}, fmt.Errorf("verify session status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("decode session identity: %w", err)
	}
	if id.AccountID <= 0 {
		return Identity{}, fmt.Errorf("gateway returned no account id")
	}
	return id, nil
}
