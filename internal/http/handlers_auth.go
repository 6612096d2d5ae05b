package http

import (
	"net/http"

	"expensedocs/internal/validator"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	in := signUpInput{Email: sanitizeInput(r.PostForm.Get("email")), Password: r.PostForm.Get("password")}
	if err := validator.Struct(in); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	resp, err := s.backend.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		s.logFailure(r, "sign up", err)
		BackendFailure(err).Write(w)
		return
	}

	message := "Account created, you are signed in"
	if resp.Session == nil {
		message = "Account created. Check your email to confirm it before signing in"
	}
	SuccessResponse(message).
		Trigger(EventSessionChanged, nil).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	in := signInInput{Email: sanitizeInput(r.PostForm.Get("email")), Password: r.PostForm.Get("password")}
	if err := validator.Struct(in); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if _, err := s.backend.SignIn(r.Context(), in.Email, in.Password); err != nil {
		s.logFailure(r, "sign in", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Signed in as "+in.Email).
		Trigger(EventSessionChanged, nil).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.SignOut(r.Context()); err != nil {
		s.logFailure(r, "sign out", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Signed out").
		Trigger(EventSessionChanged, nil).
		Write(w)
}
