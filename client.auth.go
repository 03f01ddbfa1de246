package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Credentials are exchanged for an access token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// TokenProvider exchanges credentials for a bearer token at the token endpoint.
type TokenProvider struct {
	logger    *zap.Logger
	transport *Transport
	tokenURL  string
}

// NewTokenProvider provides a TokenProvider bound to the configured auth url.
func NewTokenProvider(logger *zap.Logger, config *CatalogConfig, transport *Transport) (*TokenProvider, error) {
	if err := checkAbsoluteURL(config.AuthURL); err != nil {
		return nil, fmt.Errorf("invalid catalog auth url: %w", err)
	}
	return &TokenProvider{logger: logger, transport: transport, tokenURL: config.AuthURL}, nil
}

// Token returns the access token issued for the credentials. Every failure
// of the token endpoint, including a success without token, is reported
// as ErrAuthentication.
func (tp *TokenProvider) Token(ctx context.Context, creds Credentials) (string, error) {
	resp, err := tp.transport.Do(ctx, request{method: http.MethodPost, url: tp.tokenURL, body: creds})
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	defer resp.Body.Close()

	if !IsSuccess(resp.StatusCode) {
		drain(resp)
		tp.logger.Warn("token request rejected", zap.String("user", creds.Username), zap.Int("response.status", resp.StatusCode))
		return "", newAuthError(resp.StatusCode)
	}

	var tr tokenResponse
	if err = json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("get token: %w: decode response: %v", ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("get token: %w: %s", ErrAuthentication, missingFieldError("access_token"))
	}
	return tr.AccessToken, nil
}
