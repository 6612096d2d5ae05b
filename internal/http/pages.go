package http

import (
	"context"
	"net/http"

	"expensedocs/internal/core"
	applog "expensedocs/internal/log"
)

// pageData feeds both full pages and the partials they embed.
type pageData struct {
	Route      Route
	Routes     []Route
	Session    *core.Session
	Categories []core.ExpenseCategory
	Documents  []core.ExpenseDocument
	CategoryID string
	Profile    *core.CompanyProfile
	Error      string
}

// load fetches what the named page shows. The first backend failure is
// kept as the page error; the page still renders with what loaded.
func (s *Server) load(ctx context.Context, page string, r *http.Request) pageData {
	data := pageData{Routes: Routes, CategoryID: r.URL.Query().Get("category_id")}
	fail := func(err error) {
		if err != nil && data.Error == "" {
			data.Error = err.Error()
		}
	}

	var err error
	data.Session, err = s.backend.Session(ctx)
	fail(err)

	switch page {
	case "Home":
		data.Categories, err = s.backend.ListCategories(ctx)
		fail(err)
		data.Documents, err = s.backend.ListDocuments(ctx, data.CategoryID)
		fail(err)
	case "Specs":
		data.Profile, err = s.backend.GetCompanyProfile(ctx)
		fail(err)
	case "Demo":
		data.Categories, err = s.backend.ListCategories(ctx)
		fail(err)
	}
	return data
}

func (s *Server) handlePage(route Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := s.load(r.Context(), route.Name, r)
		data.Route = route

		status := http.StatusOK
		if data.Error != "" {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Page loaded with backend error",
				"page", route.Name, applog.FieldError, data.Error)
			status = http.StatusBadGateway
		}
		s.render(w, r, status, route.Template, data)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found.html", pageData{
		Routes: Routes,
		Route:  Route{Title: "Not found"},
	})
}

func (s *Server) handleCategoriesPartial(w http.ResponseWriter, r *http.Request) {
	categories, err := s.backend.ListCategories(r.Context())
	if err != nil {
		BackendFailure(err).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "categories", pageData{Categories: categories})
}

func (s *Server) handleDocumentsPartial(w http.ResponseWriter, r *http.Request) {
	data := pageData{CategoryID: r.URL.Query().Get("category_id")}
	var err error
	if data.Categories, err = s.backend.ListCategories(r.Context()); err != nil {
		BackendFailure(err).Write(w)
		return
	}
	if data.Documents, err = s.backend.ListDocuments(r.Context(), data.CategoryID); err != nil {
		BackendFailure(err).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "documents", data)
}

func (s *Server) handleProfilePartial(w http.ResponseWriter, r *http.Request) {
	profile, err := s.backend.GetCompanyProfile(r.Context())
	if err != nil {
		BackendFailure(err).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "profile", pageData{Profile: profile})
}

func (s *Server) handleSessionPartial(w http.ResponseWriter, r *http.Request) {
	session, err := s.backend.Session(r.Context())
	if err != nil {
		BackendFailure(err).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "session", pageData{Session: session})
}
