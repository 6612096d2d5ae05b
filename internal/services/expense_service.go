package services

import (
	"context"
	"time"

	"expensedocs/internal/amqp"
	"expensedocs/internal/auth"
	"expensedocs/internal/backend"
	"expensedocs/internal/core"
	applog "expensedocs/internal/log"
)

// Publisher sends events to the audit feed. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.Event) error
}

// ExpenseService wraps a backend, logging every call and announcing each
// successful mutation on the event feed.
type ExpenseService struct {
	backend   backend.Backend
	publisher Publisher
	logger    *applog.Logger
}

var _ backend.Backend = (*ExpenseService)(nil)

// NewExpenseService wraps b. publisher may be nil, in which case no events
// are sent.
func NewExpenseService(b backend.Backend, publisher Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExpenseService{
		backend:   b,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentExpense),
	}
}

func (s *ExpenseService) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	start := time.Now()
	categories, err := s.backend.ListCategories(ctx)
	s.logResult(ctx, "list_categories", core.TableCategories, "", start, err, "count", len(categories))
	return categories, err
}

func (s *ExpenseService) CreateCategory(ctx context.Context, in core.NewCategory) (core.ExpenseCategory, error) {
	start := time.Now()
	category, err := s.backend.CreateCategory(ctx, in)
	s.logResult(ctx, "create_category", core.TableCategories, category.ID, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableCategories, amqp.OpInsert, category.ID))
	}
	return category, err
}

func (s *ExpenseService) UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.ExpenseCategory, error) {
	start := time.Now()
	category, err := s.backend.UpdateCategory(ctx, id, patch)
	s.logResult(ctx, "update_category", core.TableCategories, id, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableCategories, amqp.OpUpdate, id))
	}
	return category, err
}

// DeleteCategory also removes the category's documents on the backend side.
func (s *ExpenseService) DeleteCategory(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := s.backend.DeleteCategory(ctx, id)
	s.logResult(ctx, "delete_category", core.TableCategories, id, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableCategories, amqp.OpDelete, id))
	}
	return ok, err
}

func (s *ExpenseService) ListDocuments(ctx context.Context, categoryID string) ([]core.ExpenseDocument, error) {
	start := time.Now()
	documents, err := s.backend.ListDocuments(ctx, categoryID)
	s.logResult(ctx, "list_documents", core.TableDocuments, "", start, err,
		applog.FieldCategoryID, categoryID, "count", len(documents))
	return documents, err
}

func (s *ExpenseService) CreateDocument(ctx context.Context, in core.NewDocument) (core.ExpenseDocument, error) {
	start := time.Now()
	document, err := s.backend.CreateDocument(ctx, in)
	s.logResult(ctx, "create_document", core.TableDocuments, document.ID, start, err,
		applog.FieldCategoryID, in.CategoryID)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableDocuments, amqp.OpInsert, document.ID))
	}
	return document, err
}

func (s *ExpenseService) UpdateDocument(ctx context.Context, id string, patch core.DocumentPatch) (core.ExpenseDocument, error) {
	start := time.Now()
	document, err := s.backend.UpdateDocument(ctx, id, patch)
	s.logResult(ctx, "update_document", core.TableDocuments, id, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableDocuments, amqp.OpUpdate, id))
	}
	return document, err
}

func (s *ExpenseService) DeleteDocument(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := s.backend.DeleteDocument(ctx, id)
	s.logResult(ctx, "delete_document", core.TableDocuments, id, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableDocuments, amqp.OpDelete, id))
	}
	return ok, err
}

func (s *ExpenseService) GetCompanyProfile(ctx context.Context) (*core.CompanyProfile, error) {
	start := time.Now()
	profile, err := s.backend.GetCompanyProfile(ctx)
	s.logResult(ctx, "get_company_profile", core.TableProfile, "", start, err, "found", profile != nil)
	return profile, err
}

func (s *ExpenseService) UpdateCompanyProfile(ctx context.Context, id string, patch core.ProfilePatch) (core.CompanyProfile, error) {
	start := time.Now()
	profile, err := s.backend.UpdateCompanyProfile(ctx, id, patch)
	s.logResult(ctx, "update_company_profile", core.TableProfile, id, start, err)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.TableProfile, amqp.OpUpdate, id))
	}
	return profile, err
}

// UploadFile publishes the object's public URL as the record id.
func (s *ExpenseService) UploadFile(ctx context.Context, upload core.Upload) (string, error) {
	start := time.Now()
	url, err := s.backend.UploadFile(ctx, upload)
	s.logResult(ctx, "upload_file", core.DocumentsBucket, url, start, err, "filename", upload.Filename)
	if err == nil {
		s.publish(ctx, amqp.NewChangeEvent(core.DocumentsBucket, amqp.OpUpload, url))
	}
	return url, err
}

// Auth calls are logged without credentials. Their events reach the feed
// through OnAuthStateChange, see ForwardAuthEvents.

func (s *ExpenseService) SignUp(ctx context.Context, email, password string) (core.AuthResponse, error) {
	start := time.Now()
	resp, err := s.backend.SignUp(ctx, email, password)
	s.logResult(ctx, "sign_up", "", "", start, err, "confirmed", resp.Session != nil)
	return resp, err
}

func (s *ExpenseService) SignIn(ctx context.Context, email, password string) (core.AuthResponse, error) {
	start := time.Now()
	resp, err := s.backend.SignIn(ctx, email, password)
	s.logResult(ctx, "sign_in", "", "", start, err)
	return resp, err
}

func (s *ExpenseService) SignOut(ctx context.Context) error {
	start := time.Now()
	err := s.backend.SignOut(ctx)
	s.logResult(ctx, "sign_out", "", "", start, err)
	return err
}

func (s *ExpenseService) Session(ctx context.Context) (*core.Session, error) {
	return s.backend.Session(ctx)
}

func (s *ExpenseService) RefreshSession(ctx context.Context) (*core.Session, error) {
	start := time.Now()
	session, err := s.backend.RefreshSession(ctx)
	s.logResult(ctx, "refresh_session", "", "", start, err)
	return session, err
}

func (s *ExpenseService) OnAuthStateChange(fn auth.Listener) *auth.Subscription {
	return s.backend.OnAuthStateChange(fn)
}

// ForwardAuthEvents subscribes to the backend's auth transitions and
// publishes each one, INITIAL_SESSION excepted. Unsubscribe to stop.
func (s *ExpenseService) ForwardAuthEvents(ctx context.Context) *auth.Subscription {
	return s.backend.OnAuthStateChange(func(event core.AuthEvent, session *core.Session) {
		s.logger.InfoContext(ctx, "Auth state changed", applog.FieldAuthEvent, event)
		if event == core.AuthInitialSession {
			return
		}
		s.publish(ctx, amqp.NewAuthEvent(event, session))
	})
}

func (s *ExpenseService) publish(ctx context.Context, event *amqp.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			append(event.LogArgs(), applog.FieldError, err)...)
	}
}

func (s *ExpenseService) logResult(ctx context.Context, op, table, id string, start time.Time, err error, extra ...any) {
	fields := applog.NewFields().WithOperation(op)
	if table != "" {
		fields.WithRecord(table, id)
	}
	args := append(fields.ToSlice(), applog.FieldDuration, time.Since(start).Milliseconds())
	args = append(args, extra...)

	if err != nil {
		s.logger.ErrorContext(ctx, "Backend operation failed", append(args, applog.FieldError, err)...)
		return
	}
	s.logger.DebugContext(ctx, "Backend operation completed", args...)
}
