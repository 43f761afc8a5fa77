package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// SyncPath is the peer endpoint receiving history records.
const SyncPath = "/history/calendar/sync"

// EventIDHeader carries the sync event id.
const EventIDHeader = "X-Sync-Event-Id"

// HTTPNotifier posts records to the calendar service.
type HTTPNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPNotifier(baseURL string, client *http.Client, logger *slog.Logger) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPNotifier{
		url:    strings.TrimRight(baseURL, "/") + SyncPath,
		client: client,
		logger: logger,
	}
}

func (n *HTTPNotifier) Name() string { return "http" }

func (n *HTTPNotifier) Sync(ctx context.Context, rec domain.HistoryRecord) bool {
	start := time.Now()
	ok := n.post(ctx, rec)
	observe(n.Name(), start, ok)
	return ok
}

func (n *HTTPNotifier) post(ctx context.Context, rec domain.HistoryRecord) bool {
	log := n.logger.With("history_id", rec.ID, "account", rec.AccountNumber, "event_id", EventID(ctx))

	body, err := json.Marshal(NewSyncPayload(rec))
	if err != nil {
		log.Error("history sync encode failed", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Error("history sync request failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if id := EventID(ctx); id != "" {
		req.Header.Set(EventIDHeader, id)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error("history sync failed", "url", n.url, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("history sync rejected", "url", n.url, "status", resp.StatusCode)
		return false
	}

	log.Info("history synced", "status", resp.StatusCode)
	return true
}
