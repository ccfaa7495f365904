package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Identity is the profile returned by the external identity provider.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

// ErrInvalidIdentityToken indicates the provider rejected the token.
var ErrInvalidIdentityToken = errors.New("invalid identity token")

// Verifier checks an opaque provider token and returns the verified identity.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// HTTPVerifier verifies OAuth access tokens against a userinfo endpoint.
type HTTPVerifier struct {
	client      *http.Client
	userinfoURL string
}

// NewHTTPVerifier creates a verifier for the given userinfo endpoint.
func NewHTTPVerifier(userinfoURL string) *HTTPVerifier {
	return &HTTPVerifier{
		client:      &http.Client{Timeout: 10 * time.Second},
		userinfoURL: userinfoURL,
	}
}

// Verify calls the userinfo endpoint with the bearer token.
func (v *HTTPVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidIdentityToken
	}

	var body struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}

	if body.Sub == "" || body.Email == "" {
		return nil, ErrInvalidIdentityToken
	}

	return &Identity{
		ExternalID: body.Sub,
		Email:      body.Email,
		Name:       body.Name,
		AvatarURL:  body.Picture,
	}, nil
}
