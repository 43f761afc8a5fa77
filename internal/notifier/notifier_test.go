package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func transferOut() domain.HistoryRecord {
	target := "2002-3000-4001"
	return domain.HistoryRecord{
		ID:             17,
		AccountNumber:  "1001-2000-3001",
		Amount:         2000,
		Kind:           domain.KindTransferOut,
		Category:       domain.CategoryTransfer,
		Name:           "rent",
		TransferTarget: &target,
		CreatedAt:      time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.Local),
	}
}

func TestHTTPNotifierPostsRecord(t *testing.T) {
	var (
		gotPath   string
		gotHeader string
		gotBody   map[string]any
	)
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get(EventIDHeader)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer peer.Close()

	n := NewHTTPNotifier(peer.URL+"/", peer.Client(), discardLogger())
	ctx := WithEventID(context.Background(), "evt-1")

	ok := n.Sync(ctx, transferOut())

	assert.True(t, ok)
	assert.Equal(t, SyncPath, gotPath)
	assert.Equal(t, "evt-1", gotHeader)
	assert.Equal(t, map[string]any{
		"accountNumber":         "1001-2000-3001",
		"historyId":             float64(17),
		"historyDate":           "2024-03-05T14:07:09",
		"historyPrice":          float64(2000),
		"historyStatus":         "TRANSFER_OUT",
		"historyCategory":       "TRANSFER",
		"historyName":           "rent",
		"historyTransferTarget": "2002-3000-4001",
	}, gotBody)
}

func TestHTTPNotifierNullTransferTarget(t *testing.T) {
	var raw map[string]json.RawMessage
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusCreated)
	}))
	defer peer.Close()

	rec := transferOut()
	rec.Kind = domain.KindPayment
	rec.TransferTarget = nil

	assert.True(t, NewHTTPNotifier(peer.URL, nil, discardLogger()).Sync(context.Background(), rec))
	assert.Equal(t, "null", string(raw["historyTransferTarget"]))
}

func TestHTTPNotifierFailures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer peer.Close()

		before := testutil.ToFloat64(syncTotal.WithLabelValues("http", "failure"))
		assert.False(t, NewHTTPNotifier(peer.URL, nil, discardLogger()).Sync(context.Background(), transferOut()))
		assert.Equal(t, before+1, testutil.ToFloat64(syncTotal.WithLabelValues("http", "failure")))
	})

	t.Run("unreachable", func(t *testing.T) {
		peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := peer.URL
		peer.Close()

		assert.False(t, NewHTTPNotifier(url, nil, discardLogger()).Sync(context.Background(), transferOut()))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer peer.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.False(t, NewHTTPNotifier(peer.URL, nil, discardLogger()).Sync(ctx, transferOut()))
	})
}

type fakeStream struct {
	mu   sync.Mutex
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args = append(f.args, a)

	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1700000000000-0")
	}
	return cmd
}

func TestStreamNotifier(t *testing.T) {
	fake := &fakeStream{}
	n := NewStreamNotifier(fake, "history.sync", discardLogger())

	ok := n.Sync(WithEventID(context.Background(), "evt-2"), transferOut())

	require.True(t, ok)
	require.Len(t, fake.args, 1)
	args := fake.args[0]
	assert.Equal(t, "history.sync", args.Stream)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, "evt-2", values["event_id"])
	assert.Equal(t, int64(17), values["history_id"])

	var payload SyncPayload
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
	assert.Equal(t, NewSyncPayload(transferOut()), payload)
}

func TestStreamNotifierFailure(t *testing.T) {
	n := NewStreamNotifier(&fakeStream{err: errors.New("connection refused")}, "history.sync", discardLogger())
	assert.False(t, n.Sync(context.Background(), transferOut()))
}

type funcNotifier struct {
	name string
	fn   func(ctx context.Context, rec domain.HistoryRecord) bool
}

func (f funcNotifier) Name() string { return f.name }

func (f funcNotifier) Sync(ctx context.Context, rec domain.HistoryRecord) bool {
	return f.fn(ctx, rec)
}

func TestMultiCallsEverySink(t *testing.T) {
	var calls int32
	ok := func(context.Context, domain.HistoryRecord) bool { atomic.AddInt32(&calls, 1); return true }
	fail := func(context.Context, domain.HistoryRecord) bool { atomic.AddInt32(&calls, 1); return false }

	assert.True(t, Multi{funcNotifier{"a", ok}, funcNotifier{"b", ok}}.Sync(context.Background(), transferOut()))
	assert.False(t, Multi{funcNotifier{"a", fail}, funcNotifier{"b", ok}}.Sync(context.Background(), transferOut()))
	assert.Equal(t, int32(4), calls)
}

func TestDispatcherRunsDetachedWithTimeout(t *testing.T) {
	var (
		mu       sync.Mutex
		eventIDs []string
		deadline bool
	)
	n := funcNotifier{name: "rec", fn: func(ctx context.Context, rec domain.HistoryRecord) bool {
		mu.Lock()
		defer mu.Unlock()
		eventIDs = append(eventIDs, EventID(ctx))
		_, deadline = ctx.Deadline()
		return true
	}}
	d := NewDispatcher(n, time.Second, discardLogger())

	d.Dispatch(transferOut())
	d.Dispatch(transferOut())
	d.Wait()

	require.Len(t, eventIDs, 2)
	assert.NotEmpty(t, eventIDs[0])
	assert.NotEqual(t, eventIDs[0], eventIDs[1])
	assert.True(t, deadline)
}

func TestDispatcherDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	n := funcNotifier{name: "slow", fn: func(ctx context.Context, rec domain.HistoryRecord) bool {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return false
	}}
	d := NewDispatcher(n, time.Minute, discardLogger())

	start := time.Now()
	d.Dispatch(transferOut())
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	d.Wait()
}

func TestDispatcherRecoversPanics(t *testing.T) {
	n := funcNotifier{name: "panic", fn: func(context.Context, domain.HistoryRecord) bool { panic("boom") }}
	d := NewDispatcher(n, time.Second, discardLogger())

	assert.NotPanics(t, func() {
		d.Dispatch(transferOut())
		d.Wait()
	})
}
