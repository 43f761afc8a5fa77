// Package notifier mirrors committed history records to downstream peers.
// Every sink makes exactly one attempt per record; failures are logged and
// counted, never returned to the ledger.
package notifier

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_sync_total",
		Help: "Downstream sync attempts by sink and outcome",
	}, []string{"sink", "outcome"})

	syncLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_sync_duration_seconds",
		Help:    "Downstream sync latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"sink"})
)

// Notifier delivers one history record to a downstream peer.
type Notifier interface {
	Sync(ctx context.Context, rec domain.HistoryRecord) bool
	Name() string
}

// SyncPayload is the wire shape shared by every sink.
type SyncPayload struct {
	AccountNumber         string  `json:"accountNumber"`
	HistoryID             int64   `json:"historyId"`
	HistoryDate           string  `json:"historyDate"`
	HistoryPrice          int64   `json:"historyPrice"`
	HistoryStatus         string  `json:"historyStatus"`
	HistoryCategory       string  `json:"historyCategory"`
	HistoryName           string  `json:"historyName"`
	HistoryTransferTarget *string `json:"historyTransferTarget"`
}

// HistoryDateLayout is ISO-8601 local date-time without zone.
const HistoryDateLayout = "2006-01-02T15:04:05"

func NewSyncPayload(rec domain.HistoryRecord) SyncPayload {
	return SyncPayload{
		AccountNumber:         rec.AccountNumber,
		HistoryID:             rec.ID,
		HistoryDate:           rec.CreatedAt.Local().Format(HistoryDateLayout),
		HistoryPrice:          rec.Amount,
		HistoryStatus:         string(rec.Kind),
		HistoryCategory:       string(rec.Category),
		HistoryName:           rec.Name,
		HistoryTransferTarget: rec.TransferTarget,
	}
}

type eventIDKey struct{}

// WithEventID attaches the sync event id sent to peers.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventID returns the sync event id stored in ctx, if any.
func EventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey{}).(string)
	return id
}

func observe(sink string, start time.Time, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	syncTotal.WithLabelValues(sink, outcome).Inc()
	syncLatency.WithLabelValues(sink).Observe(time.Since(start).Seconds())
}

// Multi fans a record out to every notifier. It reports true only if all of
// them succeed; one failing sink does not stop the others.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Sync(ctx context.Context, rec domain.HistoryRecord) bool {
	ok := true
	for _, n := range m {
		if !n.Sync(ctx, rec) {
			ok = false
		}
	}
	return ok
}
