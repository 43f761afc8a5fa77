package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of redis.Cmdable used by StreamNotifier.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamNotifier appends records to a Redis stream for consumers that mirror
// the ledger.
type StreamNotifier struct {
	client StreamAdder
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewStreamNotifier(client StreamAdder, stream string, logger *slog.Logger) *StreamNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamNotifier{client: client, stream: stream, maxLen: 100000, logger: logger}
}

func (n *StreamNotifier) Name() string { return "redis" }

func (n *StreamNotifier) Sync(ctx context.Context, rec domain.HistoryRecord) bool {
	start := time.Now()
	ok := n.add(ctx, rec)
	observe(n.Name(), start, ok)
	return ok
}

func (n *StreamNotifier) add(ctx context.Context, rec domain.HistoryRecord) bool {
	log := n.logger.With("history_id", rec.ID, "stream", n.stream, "event_id", EventID(ctx))

	payload, err := json.Marshal(NewSyncPayload(rec))
	if err != nil {
		log.Error("history stream encode failed", "error", err)
		return false
	}

	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id":   EventID(ctx),
			"history_id": rec.ID,
			"payload":    string(payload),
		},
	}).Result()
	if err != nil {
		log.Error("history stream publish failed", "error", err)
		return false
	}

	log.Debug("history published", "entry_id", id)
	return true
}
