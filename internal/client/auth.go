package client

import (
	"context"
	"net/http"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/users"
)

// Signup creates the account and keeps the returned session token.
func (c *Client) Signup(ctx context.Context, username, password string) (*auth.SessionResponse, error) {
	return c.startSession(ctx, "/api/auth/signup", username, password)
}

// Signin keeps the returned session token on success.
func (c *Client) Signin(ctx context.Context, username, password string) (*auth.SessionResponse, error) {
	return c.startSession(ctx, "/api/auth/signin", username, password)
}

func (c *Client) startSession(ctx context.Context, path, username, password string) (*auth.SessionResponse, error) {
	var resp auth.SessionResponse
	creds := auth.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, path, creds, &resp); err != nil {
		return nil, err
	}
	c.token = resp.SessionID
	return &resp, nil
}

func (c *Client) Signout(ctx context.Context) error {
	if c.token == "" {
		return ErrNotSignedIn
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/auth/me", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}
