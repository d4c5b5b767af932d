// Package oauth implements the TokenRefresher port using golang.org/x/oauth2.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenRefresher = (*Refresher)(nil)

// ErrEmptyAccessToken is returned when the token endpoint answers without an access token.
var ErrEmptyAccessToken = errors.New("token endpoint returned no access token")

// Refresher exchanges refresh tokens at an OAuth 2.0 token endpoint.
type Refresher struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewRefresher creates a Refresher for the given token endpoint and public client ID.
// Client credentials are sent in the request body, as public clients do.
func NewRefresher(tokenURL, clientID string) *Refresher {
	return NewRefresherWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, tokenURL, clientID)
}

// NewRefresherWithHTTPClient creates a Refresher that sends requests through httpClient.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewRefresherWithHTTPClient(httpClient *http.Client, tokenURL, clientID string) *Refresher {
	return &Refresher{
		cfg: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// Refresh performs a refresh_token grant and maps the response to a TokenSet.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*model.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// An already-expired token forces the source to hit the endpoint.
	src := r.cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token grant: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}

	set := &model.TokenSet{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
		Email:       accountEmail(tok),
	}
	// The oauth2 package copies the old refresh token forward when the server
	// does not rotate it; report only a genuinely new one.
	if tok.RefreshToken != refreshToken {
		set.RefreshToken = tok.RefreshToken
	}
	return set, nil
}

// accountEmail extracts account.email_address from the raw token response, if present.
func accountEmail(tok *oauth2.Token) string {
	account, ok := tok.Extra("account").(map[string]any)
	if !ok {
		return ""
	}
	email, _ := account["email_address"].(string)
	return email
}
