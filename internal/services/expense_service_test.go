package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedocs/internal/amqp"
	"expensedocs/internal/auth"
	"expensedocs/internal/backend"
	"expensedocs/internal/core"
	applog "expensedocs/internal/log"
)

// fakeBackend implements the calls exercised here; the embedded interface
// panics on anything else.
type fakeBackend struct {
	backend.Backend
	state *auth.State
	err   error
}

func (f *fakeBackend) CreateCategory(_ context.Context, in core.NewCategory) (core.ExpenseCategory, error) {
	if f.err != nil {
		return core.ExpenseCategory{}, f.err
	}
	return core.ExpenseCategory{ID: "cat-1", Name: in.Name}, nil
}

func (f *fakeBackend) ListCategories(context.Context) ([]core.ExpenseCategory, error) {
	return []core.ExpenseCategory{{ID: "cat-1"}}, f.err
}

func (f *fakeBackend) DeleteDocument(context.Context, string) (bool, error) {
	return f.err == nil, f.err
}

func (f *fakeBackend) UploadFile(context.Context, core.Upload) (string, error) {
	return "http://files/expense-documents/1-abc.pdf", f.err
}

func (f *fakeBackend) OnAuthStateChange(fn auth.Listener) *auth.Subscription {
	return f.state.Subscribe(fn)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) snapshot() []*amqp.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.Event(nil), p.events...)
}

func newTestService(b *fakeBackend, p Publisher) (*ExpenseService, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json", Level: slog.LevelDebug})
	return NewExpenseService(b, p, logger), &buf
}

func TestExpenseService_PublishesMutations(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(&fakeBackend{}, pub)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, core.NewCategory{Name: "Travel"})
	require.NoError(t, err)
	assert.Equal(t, "cat-1", category.ID)

	ok, err := svc.DeleteDocument(ctx, "doc-9")
	require.NoError(t, err)
	assert.True(t, ok)

	url, err := svc.UploadFile(ctx, core.Upload{Filename: "r.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)

	_, err = svc.ListCategories(ctx)
	require.NoError(t, err)

	events := pub.snapshot()
	require.Len(t, events, 3, "reads publish nothing")
	assert.Equal(t, core.TableCategories, events[0].Table)
	assert.Equal(t, amqp.OpInsert, events[0].Operation)
	assert.Equal(t, "cat-1", events[0].RecordID)
	assert.Equal(t, amqp.OpDelete, events[1].Operation)
	assert.Equal(t, "doc-9", events[1].RecordID)
	assert.Equal(t, amqp.OpUpload, events[2].Operation)
	assert.Equal(t, url, events[2].RecordID)
}

func TestExpenseService_ErrorsPassThroughUnchanged(t *testing.T) {
	backendErr := core.NewBackendError("create category", http.StatusConflict, "duplicate key value violates unique constraint")
	pub := &fakePublisher{}
	svc, logs := newTestService(&fakeBackend{err: backendErr}, pub)

	_, err := svc.CreateCategory(context.Background(), core.NewCategory{Name: "Travel"})
	require.Error(t, err)
	assert.Same(t, backendErr, err)
	assert.Equal(t, "duplicate key value violates unique constraint", err.Error())
	assert.Empty(t, pub.snapshot())
	assert.Contains(t, logs.String(), "Backend operation failed")
}

func TestExpenseService_PublishFailureIsLoggedOnly(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	svc, logs := newTestService(&fakeBackend{}, pub)

	_, err := svc.CreateCategory(context.Background(), core.NewCategory{Name: "Travel"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Failed to publish event")
	assert.Contains(t, logs.String(), "channel closed")
}

func TestExpenseService_NilPublisher(t *testing.T) {
	svc, _ := newTestService(&fakeBackend{}, nil)
	_, err := svc.CreateCategory(context.Background(), core.NewCategory{Name: "Travel"})
	require.NoError(t, err)
}

func TestExpenseService_ForwardAuthEvents(t *testing.T) {
	state := auth.NewState()
	t.Cleanup(state.Close)
	pub := &fakePublisher{}
	svc, _ := newTestService(&fakeBackend{state: state}, pub)

	sub := svc.ForwardAuthEvents(context.Background())
	defer sub.Unsubscribe()

	session := &core.Session{AccessToken: "t", User: core.User{ID: "user-1"}}
	state.Set(core.AuthSignedIn, session)
	state.Set(core.AuthSignedOut, nil)

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	events := pub.snapshot()
	assert.Equal(t, amqp.KindAuth, events[0].Kind)
	assert.Equal(t, core.AuthSignedIn, events[0].AuthEvent)
	assert.Equal(t, "user-1", events[0].UserID)
	assert.Equal(t, core.AuthSignedOut, events[1].AuthEvent)
	assert.Empty(t, events[1].UserID)
}
