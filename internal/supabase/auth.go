package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (core.AuthResponse, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:      "sign up",
		method:  http.MethodPost,
		path:    authPath + "signup",
		payload: credentials{Email: email, Password: password},
		anon:    true,
	}, &raw)
	if err != nil {
		return core.AuthResponse{}, err
	}

	// With email confirmation enabled GoTrue answers with a bare user.
	var tok core.Session
	if err := json.Unmarshal(raw, &tok); err != nil {
		return core.AuthResponse{}, core.NewBackendError("sign up", 0, err.Error())
	}
	if tok.AccessToken == "" {
		var user core.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return core.AuthResponse{}, core.NewBackendError("sign up", 0, err.Error())
		}
		return core.AuthResponse{User: &user}, nil
	}

	session := c.normalize(tok)
	c.state.Set(core.AuthSignedIn, &session)
	return core.AuthResponse{User: &session.User, Session: &session}, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (core.AuthResponse, error) {
	session, err := c.token(ctx, "sign in", "password", credentials{Email: email, Password: password})
	if err != nil {
		return core.AuthResponse{}, err
	}
	c.state.Set(core.AuthSignedIn, &session)
	return core.AuthResponse{User: &session.User, Session: &session}, nil
}

// SignOut revokes the current session. Without a session it only clears
// local state.
func (c *Client) SignOut(ctx context.Context) error {
	current := c.state.Current()
	if current != nil {
		err := c.do(ctx, request{
			op:     "sign out",
			method: http.MethodPost,
			path:   authPath + "logout",
			token:  current.AccessToken,
		}, nil)
		if err != nil {
			return err
		}
	}
	c.state.Set(core.AuthSignedOut, nil)
	return nil
}

// Session returns the current session, refreshing it first when its access
// token is about to expire. Nil means signed out.
func (c *Client) Session(ctx context.Context) (*core.Session, error) {
	current := c.state.Current()
	if current == nil {
		return nil, nil
	}
	if !current.Expired(c.now(), expiryMargin) {
		return current, nil
	}
	return c.RefreshSession(ctx)
}

// RefreshSession exchanges the refresh token for a new session. A rejected
// refresh token signs the client out.
func (c *Client) RefreshSession(ctx context.Context) (*core.Session, error) {
	current := c.state.Current()
	if current == nil || current.RefreshToken == "" {
		return nil, core.NewBackendError("refresh session", http.StatusUnauthorized, "Auth session missing!")
	}

	session, err := c.token(ctx, "refresh session", "refresh_token", map[string]string{
		"refresh_token": current.RefreshToken,
	})
	if err != nil {
		if be, ok := core.AsBackendError(err); ok && be.Status >= 400 && be.Status < 500 {
			c.state.Set(core.AuthSignedOut, nil)
		}
		return nil, err
	}
	c.state.Set(core.AuthTokenRefreshed, &session)
	return &session, nil
}

// OnAuthStateChange registers fn for every auth transition, starting with
// INITIAL_SESSION.
func (c *Client) OnAuthStateChange(fn auth.Listener) *auth.Subscription {
	return c.state.Subscribe(fn)
}

func (c *Client) token(ctx context.Context, op, grantType string, payload any) (core.Session, error) {
	var tok core.Session
	err := c.do(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    authPath + "token",
		query:   url.Values{"grant_type": {grantType}},
		payload: payload,
		anon:    true,
	}, &tok)
	if err != nil {
		return core.Session{}, err
	}
	return c.normalize(tok), nil
}

// normalize fills ExpiresAt from ExpiresIn when the server omitted it.
func (c *Client) normalize(s core.Session) core.Session {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Unix() + int64(s.ExpiresIn)
	}
	return s
}
