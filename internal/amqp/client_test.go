package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedocs/internal/core"
)

type fakeDelivery struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (d *fakeDelivery) Ack(bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(_ bool, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

func TestEventRoundTrip(t *testing.T) {
	change := NewChangeEvent(core.TableDocuments, OpUpdate, "d1")
	body, err := change.ToJSON()
	require.NoError(t, err)

	decoded, err := EventFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, KindChange, decoded.Kind)
	assert.Equal(t, core.TableDocuments, decoded.Table)
	assert.Equal(t, OpUpdate, decoded.Operation)
	assert.Equal(t, "d1", decoded.RecordID)
	assert.True(t, change.Timestamp.Equal(decoded.Timestamp))
}

func TestNewAuthEvent(t *testing.T) {
	signedIn := NewAuthEvent(core.AuthSignedIn, &core.Session{User: core.User{ID: "u1"}})
	assert.Equal(t, KindAuth, signedIn.Kind)
	assert.Equal(t, "u1", signedIn.UserID)

	signedOut := NewAuthEvent(core.AuthSignedOut, nil)
	assert.Equal(t, "", signedOut.UserID)
	assert.Equal(t, []any{"kind", KindAuth, "auth_event", core.AuthSignedOut, "user_id", ""}, signedOut.LogArgs())
}

func TestEventFromJSON_RejectsUnknownKind(t *testing.T) {
	_, err := EventFromJSON([]byte(`{"kind":"sync","record_id":"x"}`))
	assert.Error(t, err)

	_, err = EventFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	body, err := NewChangeEvent(core.TableCategories, OpInsert, "c1").ToJSON()
	require.NoError(t, err)

	t.Run("success acks", func(t *testing.T) {
		d := &fakeDelivery{}
		var got *Event
		process(ctx, body, d, func(_ context.Context, e *Event) error {
			got = e
			return nil
		})
		assert.True(t, d.acked)
		assert.False(t, d.nacked)
		require.NotNil(t, got)
		assert.Equal(t, "c1", got.RecordID)
	})

	t.Run("handler failure requeues", func(t *testing.T) {
		d := &fakeDelivery{}
		process(ctx, body, d, func(context.Context, *Event) error {
			return errors.New("audit sink unavailable")
		})
		assert.False(t, d.acked)
		assert.True(t, d.nacked)
		assert.True(t, d.requeued)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		d := &fakeDelivery{}
		called := false
		process(ctx, []byte(`{`), d, func(context.Context, *Event) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.True(t, d.nacked)
		assert.False(t, d.requeued)
	})
}
