package storage

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"
	"expensedocs/internal/validator"
)

const sessionRefreshMargin = 10 * time.Second

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// SignUp registers a user and signs them in; there is no confirmation step.
func (r *SQLiteRepository) SignUp(ctx context.Context, email, password string) (core.AuthResponse, error) {
	const op = "sign up"
	email = normalizeEmail(email)
	if err := validator.Struct(signUpInput{Email: email, Password: password}); err != nil {
		return core.AuthResponse{}, core.NewBackendError(op, http.StatusUnprocessableEntity, err.Error())
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.AuthResponse{}, core.NewBackendError(op, http.StatusInternalServerError, err.Error())
	}

	user := core.User{ID: uuid.NewString(), Email: email, Role: "authenticated", CreatedAt: r.now().UTC()}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID, user.Email, hash, user.CreatedAt.Format(timestampLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.AuthResponse{}, core.NewBackendError(op, http.StatusUnprocessableEntity, "User already registered")
		}
		return core.AuthResponse{}, translate(op, err)
	}

	return r.signIn(ctx, op, user)
}

func (r *SQLiteRepository) SignIn(ctx context.Context, email, password string) (core.AuthResponse, error) {
	const op = "sign in"
	var (
		user      core.User
		hash      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`, normalizeEmail(email)).Scan(&user.ID, &user.Email, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !auth.CheckPassword(hash, password)) {
		return core.AuthResponse{}, core.NewBackendError(op, http.StatusBadRequest, "Invalid login credentials")
	}
	if err != nil {
		return core.AuthResponse{}, translate(op, err)
	}
	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.AuthResponse{}, translate(op, err)
	}
	user.Role = "authenticated"

	return r.signIn(ctx, op, user)
}

func (r *SQLiteRepository) signIn(ctx context.Context, op string, user core.User) (core.AuthResponse, error) {
	now := r.now().UTC()
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_sign_in_at = ? WHERE id = ?`,
		now.Format(timestampLayout), user.ID); err != nil {
		return core.AuthResponse{}, translate(op, err)
	}
	user.LastSignInAt = &now

	session, err := r.issueSession(ctx, r.db, op, user)
	if err != nil {
		return core.AuthResponse{}, err
	}
	r.state.Set(core.AuthSignedIn, &session)
	return core.AuthResponse{User: &session.User, Session: &session}, nil
}

func (r *SQLiteRepository) issueSession(ctx context.Context, q queryable, op string, user core.User) (core.Session, error) {
	access, expiresAt, err := r.tokens.GenerateToken(user)
	if err != nil {
		return core.Session{}, core.NewBackendError(op, http.StatusInternalServerError, err.Error())
	}
	refresh := uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, created_at)
		VALUES (?, ?, ?)
	`, refresh, user.ID, r.timestamp())
	if err != nil {
		return core.Session{}, translate(op, err)
	}

	return core.Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int(r.tokens.ExpiresIn().Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// SignOut revokes every refresh token of the signed-in user.
func (r *SQLiteRepository) SignOut(ctx context.Context) error {
	current := r.state.Current()
	if current != nil {
		userID, err := r.tokens.Subject(current.AccessToken)
		if err != nil {
			return core.NewBackendError("sign out", http.StatusUnauthorized, "invalid JWT: unable to parse or verify signature")
		}
		if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?`, userID); err != nil {
			return translate("sign out", err)
		}
	}
	r.state.Set(core.AuthSignedOut, nil)
	return nil
}

func (r *SQLiteRepository) Session(ctx context.Context) (*core.Session, error) {
	current := r.state.Current()
	if current == nil {
		return nil, nil
	}
	if !current.Expired(r.now(), sessionRefreshMargin) {
		return current, nil
	}
	return r.RefreshSession(ctx)
}

// RefreshSession rotates the refresh token. A revoked or unknown token signs
// the client out.
func (r *SQLiteRepository) RefreshSession(ctx context.Context) (*core.Session, error) {
	const op = "refresh session"
	current := r.state.Current()
	if current == nil || current.RefreshToken == "" {
		return nil, core.NewBackendError(op, http.StatusUnauthorized, "Auth session missing!")
	}

	session, err := r.rotate(ctx, op, current.RefreshToken)
	if err != nil {
		if be, ok := core.AsBackendError(err); ok && be.Status >= 400 && be.Status < 500 {
			r.state.Set(core.AuthSignedOut, nil)
		}
		return nil, err
	}
	r.state.Set(core.AuthTokenRefreshed, &session)
	return &session, nil
}

func (r *SQLiteRepository) rotate(ctx context.Context, op, token string) (core.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Session{}, translate(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		user       core.User
		createdAt  string
		lastSignIn sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.created_at, u.last_sign_in_at
		FROM refresh_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = ? AND t.revoked = 0
	`, token).Scan(&user.ID, &user.Email, &createdAt, &lastSignIn)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.NewBackendError(op, http.StatusBadRequest, "Invalid Refresh Token: Refresh Token Not Found")
	}
	if err != nil {
		return core.Session{}, translate(op, err)
	}
	user.Role = "authenticated"
	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Session{}, translate(op, err)
	}
	if lastSignIn.Valid {
		if t, err := parseTimestamp(lastSignIn.String); err == nil {
			user.LastSignInAt = &t
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE token = ?`, token); err != nil {
		return core.Session{}, translate(op, err)
	}
	session, err := r.issueSession(ctx, tx, op, user)
	if err != nil {
		return core.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Session{}, translate(op, err)
	}
	return session, nil
}

func (r *SQLiteRepository) OnAuthStateChange(fn auth.Listener) *auth.Subscription {
	return r.state.Subscribe(fn)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
