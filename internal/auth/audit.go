package auth

import (
	"context"
	"sync"
	"time"

	"confhub/internal/logging"
	"confhub/internal/models"
	"confhub/internal/store"
)

// AuditSink consumes login attempts. Implementations must not block.
type AuditSink interface {
	Record(ctx context.Context, entry *models.LoginActivity) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, entry *models.LoginActivity) error

// Record implements AuditSink.
func (f AuditSinkFunc) Record(ctx context.Context, entry *models.LoginActivity) error {
	if f == nil {
		return nil
	}
	return f(ctx, entry)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(context.Context, *models.LoginActivity) error { return nil }

func normalizeAuditSink(s AuditSink) AuditSink {
	if s == nil {
		return noopAuditSink{}
	}
	return s
}

// AsyncRecorder writes audit entries to the activity store from a single
// background goroutine. Record never blocks: when the buffer is full the
// entry is dropped and logged.
type AsyncRecorder struct {
	activities store.Activities
	log        logging.Logger
	entries    chan *models.LoginActivity
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

// NewAsyncRecorder starts the writer goroutine. Close drains it.
func NewAsyncRecorder(activities store.Activities, log logging.Logger, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 1
	}
	r := &AsyncRecorder{
		activities: activities,
		log:        log,
		entries:    make(chan *models.LoginActivity, buffer),
		done:       make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.activities.Append(ctx, entry); err != nil {
			r.log.Error(ctx, "failed to write login activity", "email", entry.Email, "error", err)
		}
		cancel()
	}
}

// Record queues entry for writing.
func (r *AsyncRecorder) Record(ctx context.Context, entry *models.LoginActivity) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Warn(ctx, "login activity dropped after shutdown", "email", entry.Email)
		return nil
	}
	select {
	case r.entries <- entry:
	default:
		r.log.Warn(ctx, "login activity buffer full, entry dropped", "email", entry.Email)
	}
	return nil
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to end.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.entries)
		r.mu.Unlock()
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
