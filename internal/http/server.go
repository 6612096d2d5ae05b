package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"expensedocs/internal/backend"
	"expensedocs/internal/core"
	applog "expensedocs/internal/log"
	"expensedocs/internal/middleware/ratelimit"
	"expensedocs/internal/middleware/security"
	"expensedocs/internal/middleware/trace"
	appweb "expensedocs/web"
)

const (
	maxUploadBytes = 10 << 20
	readyTimeout   = 3 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr    string
	Backend backend.Backend
	Logger  *applog.Logger
	// PublicFiles serves the local bucket; nil when objects live remotely.
	PublicFiles http.Handler
	RateLimit   ratelimit.Config
}

type Server struct {
	http.Server
	templates *template.Template
	backend   backend.Backend
	logger    *applog.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware,
// returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	limits := opts.RateLimit
	if limits.RequestsPerMinute == 0 && len(limits.Methods) == 0 {
		limits = ratelimit.DefaultConfig()
	}

	s := &Server{
		templates: templates,
		backend:   opts.Backend,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(limits),
		detector:  security.NewDetector(),
	}

	router := mux.NewRouter()
	s.registerRoutes(router, opts.PublicFiles)

	var handler http.Handler = router
	handler = s.limiter.Middleware(limits.Methods, s.detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP).Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) registerRoutes(r *mux.Router, publicFiles http.Handler) {
	guard := func(h http.HandlerFunc) http.Handler { return s.sessionGuard(h) }

	for _, route := range Routes {
		r.Handle(route.Path, s.sessionGuard(s.handlePage(route))).Methods(http.MethodGet, http.MethodHead).Name(route.Name)
	}

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	ui := r.PathPrefix("/ui").Methods(http.MethodGet).Subrouter()
	ui.Handle("/categories", guard(s.handleCategoriesPartial))
	ui.Handle("/documents", guard(s.handleDocumentsPartial))
	ui.Handle("/profile", guard(s.handleProfilePartial))
	ui.Handle("/session", s.localOnly(s.handleSessionPartial))

	r.Handle("/categories", guard(s.handleCreateCategory)).Methods(http.MethodPost)
	r.Handle("/categories/{id}", guard(s.handleUpdateCategory)).Methods(http.MethodPatch)
	r.Handle("/categories/{id}", guard(s.handleDeleteCategory)).Methods(http.MethodDelete)

	r.Handle("/documents", guard(s.handleCreateDocument)).Methods(http.MethodPost)
	r.Handle("/documents/{id}", guard(s.handleUpdateDocument)).Methods(http.MethodPatch)
	r.Handle("/documents/{id}", guard(s.handleDeleteDocument)).Methods(http.MethodDelete)
	r.Handle("/uploads", guard(s.handleUpload)).Methods(http.MethodPost)

	r.Handle("/profile/{id}", guard(s.handleUpdateProfile)).Methods(http.MethodPatch)

	r.Handle("/auth/signup", s.localOnly(s.handleSignUp)).Methods(http.MethodPost)
	r.Handle("/auth/signin", s.localOnly(s.handleSignIn)).Methods(http.MethodPost)
	r.Handle("/auth/signout", s.localOnly(s.handleSignOut)).Methods(http.MethodPost)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	if publicFiles != nil {
		r.PathPrefix(core.PublicObjectPath).Handler(publicFiles)
	}

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"amount": func(d *decimal.Decimal) string {
			if d == nil {
				return "-"
			}
			return d.StringFixed(2)
		},
		"amountValue": func(d *decimal.Decimal) string {
			if d == nil {
				return ""
			}
			return d.String()
		},
		"optionalDate": func(d *core.Date) string {
			if d == nil {
				return ""
			}
			return d.String()
		},
		"categoryName": func(categories []core.ExpenseCategory, id string) string {
			for _, c := range categories {
				if c.ID == id {
					return c.Name
				}
			}
			return ""
		},
		"timestamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"expires": func(unix int64) string {
			if unix == 0 {
				return ""
			}
			return time.Unix(unix, 0).Local().Format("2006-01-02 15:04:05")
		},
	}

	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render buffers the template so a failing execution still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", "template", name, applog.FieldError, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the backend answers a category listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if _, err := s.backend.ListCategories(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "backend unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
