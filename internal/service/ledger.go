package service

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_operations_total",
	Help: "Ledger operations by outcome",
}, []string{"operation", "result"})

// Dispatcher hands a committed history record to the downstream sync.
// Dispatch must not block on the network.
type Dispatcher interface {
	Dispatch(rec domain.HistoryRecord)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(domain.HistoryRecord) {}

// LedgerService runs payments and transfers as single store transactions and
// schedules the downstream sync once each one commits.
type LedgerService struct {
	store  store.Store
	sync   Dispatcher
	logger *slog.Logger
}

func NewLedgerService(s store.Store, d Dispatcher, logger *slog.Logger) *LedgerService {
	if d == nil {
		d = noopDispatcher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: s, sync: d, logger: logger}
}

// afterCommit registers the sync of rec on tx. rec is copied now because the
// caller's record must not be shared with the dispatch goroutine.
func (s *LedgerService) afterCommit(tx store.Tx, rec *domain.HistoryRecord) {
	snap := rec.Snapshot()
	tx.AfterCommit(func() {
		s.sync.Dispatch(snap)
	})
}

func (s *LedgerService) observe(operation string, err error) {
	result := resultLabel(err)
	opsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		s.logger.Error("ledger operation failed", "operation", operation, "error", err)
	} else if err != nil {
		s.logger.Debug("ledger operation rejected", "operation", operation, "result", result, "error", err)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrSameAccount):
		return "rejected"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
