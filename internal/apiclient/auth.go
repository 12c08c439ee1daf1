package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"automation-hub/internal/domain"
)

// AuthAPI implements domain.AuthAPI against /auth.
type AuthAPI struct {
	client *Client
}

// NewAuthAPI creates an AuthAPI.
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{client: c}
}

var _ domain.AuthAPI = (*AuthAPI)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token. The request is sent
// without any stored token.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := a.client.DoAnonymous(ctx, http.MethodPost, "/auth/login", nil, loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	var tok tokenResponse
	if err := DecodeJSON(resp, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login response did not include an access token")
	}
	return tok.AccessToken, nil
}

// Me returns the profile of the token's owner.
func (a *AuthAPI) Me(ctx context.Context) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := a.client.GetJSON(ctx, "/auth/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}
