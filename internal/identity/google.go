// Package identity abstracts the external identity provider used for social
// sign-in. The provider either returns a verified (subject, email, name)
// tuple or fails; nothing else about it is assumed.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrInvalidIDToken = errors.New("invalid identity token")

// Identity is the verified claim set returned by the provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier validates a provider-issued id token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier checks id tokens against Google's tokeninfo endpoint.
// When clientID is set the token audience must match it.
type GoogleVerifier struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    googleTokenInfoURL,
		clientID:   clientID,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, ErrInvalidIDToken
	}

	u := v.baseURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrInvalidIDToken
	}

	var payload struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Aud   string `json:"aud"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Identity{}, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if v.clientID != "" && payload.Aud != v.clientID {
		return Identity{}, ErrInvalidIDToken
	}
	if payload.Sub == "" || payload.Email == "" {
		return Identity{}, ErrInvalidIDToken
	}

	return Identity{
		Subject: payload.Sub,
		Email:   payload.Email,
		Name:    payload.Name,
	}, nil
}
