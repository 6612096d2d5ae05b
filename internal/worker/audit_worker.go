package worker

import (
	"context"
	"sort"
	"sync"

	"expensedocs/internal/amqp"
	applog "expensedocs/internal/log"
)

// AuditWorker writes one log line per event from the feed and keeps a
// running count per event type.
type AuditWorker struct {
	logger *applog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func NewAuditWorker(logger *applog.Logger) *AuditWorker {
	return &AuditWorker{
		logger: logger.WithComponent(applog.ComponentAudit),
		counts: make(map[string]int),
	}
}

// HandleEvent never fails, so no delivery is ever requeued.
func (w *AuditWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	w.logger.InfoContext(ctx, "Audit event", append(event.LogArgs(), "published_at", event.Timestamp)...)

	w.mu.Lock()
	w.counts[countKey(event)]++
	w.mu.Unlock()
	return nil
}

// countKey is "auth:SIGNED_IN" for auth events and "change:table.operation"
// for data changes.
func countKey(event *amqp.Event) string {
	if event.Kind == amqp.KindAuth {
		return string(event.Kind) + ":" + string(event.AuthEvent)
	}
	return string(event.Kind) + ":" + event.Table + "." + string(event.Operation)
}

// Counts returns a copy of the per-type totals.
func (w *AuditWorker) Counts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// LogSummary logs the totals in key order.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	counts := w.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, counts[k])
	}
	w.logger.InfoContext(ctx, "Audit summary", args...)
}
