package http

import (
	"net/http"

	applog "expensedocs/internal/log"
	"expensedocs/internal/middleware/security"
)

// The server drives a single backend client and with it a single auth
// session. Clients on other machines never get to use that session.

const remoteRefusal = "This page is only available from the machine running the server while someone is signed in"

// localOnly guards the routes that create, show or end the session.
func (s *Server) localOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !security.IsLocalRequest(r) {
			s.refuseRemote(w, r, "Sign-in is only available from the machine running the server")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionGuard lets remote clients through only while nobody is signed in,
// so their calls go out with the public key alone.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if security.IsLocalRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		session, err := s.backend.Session(r.Context())
		if err != nil || session != nil {
			s.refuseRemote(w, r, remoteRefusal)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) refuseRemote(w http.ResponseWriter, r *http.Request, message string) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
		"Refused remote client", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	ErrorResponse(http.StatusForbidden, message).Write(w)
}
