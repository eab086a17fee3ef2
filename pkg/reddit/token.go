package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	errs "socialcrawler/pkg/errors"
)

const (
	// tokenExpiryMargin is how long before expiry a token is refreshed
	tokenExpiryMargin = 30 * time.Second

	// defaultTokenLifetime applies when the token response omits expires_in
	defaultTokenLifetime = time.Hour
)

// accessToken is the cached bearer token. Zero value means absent.
type accessToken struct {
	value  string
	expiry time.Time
}

func (t accessToken) valid(now time.Time) bool {
	return t.value != "" && now.Before(t.expiry.Add(-tokenExpiryMargin))
}

// Authenticate ensures a valid bearer token is held, requesting one only
// when none is cached or the cached one is within the refresh margin.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.bearerToken(ctx)
	return err
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token.valid(now) {
		return c.token.value, nil
	}

	c.logger.DebugWithFields("requesting access token", map[string]interface{}{
		"token_url": c.oauth.Endpoint.TokenURL,
		"username":  c.creds.Username,
	})

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.PasswordCredentialsToken(ctx, c.creds.Username, c.creds.Password)
	if err != nil {
		code := 0
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			code = re.Response.StatusCode
		}
		c.logger.ErrorWithFields("token request failed", map[string]interface{}{
			"status": code,
			"error":  err.Error(),
		})
		return "", errs.NewAuthError(code, "token request rejected", err)
	}

	c.token = accessToken{
		value:  tok.AccessToken,
		expiry: now.Add(tokenLifetime(tok)),
	}

	c.logger.DebugWithFields("access token acquired", map[string]interface{}{
		"expires_at": c.token.expiry,
	})

	return c.token.value, nil
}

// tokenLifetime reads expires_in from the raw token response. The expiry
// oauth2 computes is tied to the wall clock, so the lifetime is applied to
// the client's own clock instead.
func tokenLifetime(tok *oauth2.Token) time.Duration {
	var seconds float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case int64:
		seconds = float64(v)
	case json.Number:
		seconds, _ = v.Float64()
	case string:
		seconds, _ = strconv.ParseFloat(v, 64)
	}
	if seconds <= 0 {
		return defaultTokenLifetime
	}
	return time.Duration(seconds * float64(time.Second))
}
