package core

import "time"

// AuthEvent names a transition of the authentication state.
type AuthEvent string

const (
	AuthInitialSession AuthEvent = "INITIAL_SESSION"
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

type (
	User struct {
		ID           string     `json:"id"`
		Email        string     `json:"email"`
		Role         string     `json:"role,omitempty"`
		CreatedAt    time.Time  `json:"created_at"`
		LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	}

	// Session is the credential state issued by the backend's auth service.
	Session struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		ExpiresAt    int64  `json:"expires_at"`
		RefreshToken string `json:"refresh_token"`
		User         User   `json:"user"`
	}

	// AuthResponse is returned by sign up and sign in. Session is nil when the
	// backend requires confirmation before issuing credentials.
	AuthResponse struct {
		User    *User
		Session *Session
	}
)

// Expired reports whether the session's access token is expired at now,
// counting a safety margin.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return !now.Add(margin).Before(time.Unix(s.ExpiresAt, 0))
}
