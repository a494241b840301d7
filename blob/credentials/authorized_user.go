package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// expirationSlack is subtracted from a token's lifetime so a token that is
// about to expire mid-request is refreshed early.
const expirationSlack = 30 * time.Second

// AuthorizedUserInfo holds the fields of an authorized-user credentials file.
type AuthorizedUserInfo struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	// TokenURI is optional in most credential files; DefaultTokenURI is
	// used when absent.
	TokenURI string `json:"token_uri"`
}

// DefaultTokenURI is the token endpoint used when the credentials file does
// not name one.
const DefaultTokenURI = "https://auth.tidalstore.io/oauth2/token"

// ParseAuthorizedUserInfo parses a credentials JSON document. source names
// where the data came from, for error messages only.
func ParseAuthorizedUserInfo(content []byte, source string) (AuthorizedUserInfo, error) {
	var info AuthorizedUserInfo
	if err := json.Unmarshal(content, &info); err != nil {
		return AuthorizedUserInfo{}, fmt.Errorf("invalid authorized user credentials from %s: %w", source, err)
	}
	for name, value := range map[string]string{
		"client_id":     info.ClientID,
		"client_secret": info.ClientSecret,
		"refresh_token": info.RefreshToken,
	} {
		if value == "" {
			return AuthorizedUserInfo{}, fmt.Errorf("invalid authorized user credentials from %s: the %s field is missing or empty", source, name)
		}
	}
	if info.TokenURI == "" {
		info.TokenURI = DefaultTokenURI
	}
	return info, nil
}

// AuthorizedUser exchanges a refresh token for access tokens and caches the
// current one until it nears expiration. Safe for concurrent use.
type AuthorizedUser struct {
	info   AuthorizedUserInfo
	client *retryablehttp.Client

	mu     sync.Mutex
	header string
	expiry time.Time
}

// NewAuthorizedUser creates a provider that refreshes through client.
func NewAuthorizedUser(info AuthorizedUserInfo, client *retryablehttp.Client) *AuthorizedUser {
	return &AuthorizedUser{info: info, client: client}
}

// AuthorizationHeader returns a cached header value, refreshing first when
// the current token is missing or close to expiring.
func (c *AuthorizedUser) AuthorizationHeader(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.header != "" && time.Now().Before(c.expiry.Add(-expirationSlack)) {
		return c.header, nil
	}
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	return c.header, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// refresh exchanges the refresh token; callers hold the mutex.
func (c *AuthorizedUser) refresh(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.info.ClientID},
		"client_secret": {c.info.ClientSecret},
		"refresh_token": {c.info.RefreshToken},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.info.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("refresh access token: HTTP %d: %s", resp.StatusCode, body)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response has no access_token")
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	c.header = tokenType + " " + token.AccessToken
	c.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}
