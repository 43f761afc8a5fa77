package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// Dispatcher runs each sync on its own goroutine with a context detached from
// the caller and bounded by timeout. It never retries.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

// Dispatch schedules rec and returns immediately.
func (d *Dispatcher) Dispatch(rec domain.HistoryRecord) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("history sync panicked", "history_id", rec.ID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		ctx = WithEventID(ctx, uuid.NewString())

		d.notifier.Sync(ctx, rec)
	}()
}

// Wait blocks until every dispatched sync has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
