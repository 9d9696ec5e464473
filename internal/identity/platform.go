package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrPlatformTokenRejected means the messaging platform refused the access
// token the mini-app presented.
var ErrPlatformTokenRejected = errors.New("identity: platform rejected access token")

// Profile is what the messaging platform returns for a verified token.
// UserID is the opaque subject the directory links against.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// PlatformClient exchanges a mini-app access token for the platform
// profile behind it.
type PlatformClient struct {
	profileURL string
	httpClient *http.Client
}

// NewPlatformClient targets the platform's profile endpoint.
func NewPlatformClient(profileURL string, timeout time.Duration) *PlatformClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PlatformClient{
		profileURL: profileURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify calls the profile endpoint with the bearer token. A 401 maps to
// ErrPlatformTokenRejected; anything else non-200 is a transport error.
func (c *PlatformClient) Verify(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: call platform: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrPlatformTokenRejected
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity: platform returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("identity: decode platform profile: %w", err)
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("identity: platform profile missing user id")
	}
	return &profile, nil
}
