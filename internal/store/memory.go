package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
)

var errTxDone = errors.New("transaction already finished")

type memAccount struct {
	lock sync.Mutex // held by the transaction that locked the row
	acc  domain.Account
}

// MemoryStore keeps the ledger in process memory. Row locks are per-account
// mutexes; writes are staged in the transaction and applied on commit.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memAccount
	history  []domain.HistoryRecord
	nextID   int64

	// Now stamps appended history records.
	Now func() time.Time
}

func NewMemoryStore(accounts ...domain.Account) *MemoryStore {
	s := &MemoryStore{
		accounts: make(map[string]*memAccount, len(accounts)),
		Now:      time.Now,
	}
	for _, acc := range accounts {
		s.Put(acc)
	}
	return s
}

// Put inserts or replaces an account outside any transaction.
func (s *MemoryStore) Put(acc domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = s.Now().Truncate(24 * time.Hour)
	}
	if row, ok := s.accounts[acc.Number]; ok {
		row.acc = acc
		return
	}
	s.accounts[acc.Number] = &memAccount{acc: acc}
}

// Account returns the committed state of an account.
func (s *MemoryStore) Account(number string) (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.accounts[number]
	if !ok {
		return domain.Account{}, false
	}
	return row.acc, true
}

// History returns a copy of all committed history records in append order.
func (s *MemoryStore) History() []domain.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.HistoryRecord, len(s.history))
	for i, rec := range s.history {
		out[i] = rec.Snapshot()
	}
	return out
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{
		store:  s,
		locked: make(map[string]*memAccount),
		staged: make(map[string]domain.Account),
	}, nil
}

func (s *MemoryStore) Close() {}

type memTx struct {
	store   *MemoryStore
	locked  map[string]*memAccount
	order   []string
	staged  map[string]domain.Account
	history []domain.HistoryRecord
	hooks   commitHooks
	done    bool
}

func (t *memTx) row(number string) (*memAccount, bool) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	row, ok := t.store.accounts[number]
	return row, ok
}

func (t *memTx) FindAccount(ctx context.Context, number string) (*domain.Account, error) {
	if t.done {
		return nil, errTxDone
	}
	if acc, ok := t.staged[number]; ok {
		return &acc, nil
	}
	if _, ok := t.row(number); !ok {
		return nil, domain.ErrAccountNotFound
	}
	acc, _ := t.store.Account(number)
	return &acc, nil
}

func (t *memTx) LockAccounts(ctx context.Context, numbers ...string) (map[string]*domain.Account, error) {
	if t.done {
		return nil, errTxDone
	}
	ordered := lockOrder(numbers)

	rows := make([]*memAccount, 0, len(ordered))
	for _, n := range ordered {
		row, ok := t.row(n)
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		rows = append(rows, row)
	}

	locked := make(map[string]*domain.Account, len(ordered))
	for i, n := range ordered {
		if _, held := t.locked[n]; !held {
			rows[i].lock.Lock()
			t.locked[n] = rows[i]
			t.order = append(t.order, n)
		}
		acc, ok := t.staged[n]
		if !ok {
			acc, _ = t.store.Account(n)
		}
		locked[n] = &acc
	}
	return locked, nil
}

func (t *memTx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	if t.done {
		return errTxDone
	}
	if _, held := t.locked[acc.Number]; !held {
		return fmt.Errorf("save %s: account not locked by transaction", acc.Number)
	}
	t.staged[acc.Number] = *acc
	return nil
}

func (t *memTx) AppendHistory(ctx context.Context, rec *domain.HistoryRecord) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.row(rec.AccountNumber); !ok {
		return domain.ErrAccountNotFound
	}

	t.store.mu.Lock()
	t.store.nextID++
	rec.ID = t.store.nextID
	rec.CreatedAt = t.store.Now()
	t.store.mu.Unlock()

	t.history = append(t.history, rec.Snapshot())
	return nil
}

func (t *memTx) AfterCommit(fn func()) {
	t.hooks.add(fn)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.store.mu.Lock()
	for n, acc := range t.staged {
		t.store.accounts[n].acc = acc
	}
	t.store.history = append(t.store.history, t.history...)
	t.store.mu.Unlock()

	t.release()
	t.hooks.run()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.hooks.discard()
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.locked[t.order[i]].lock.Unlock()
	}
	t.locked = nil
	t.order = nil
	t.staged = nil
	t.history = nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) CountAccounts(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.accounts)), nil
}

func (s *MemoryStore) SeedAccounts(ctx context.Context, accounts []domain.Account) (int64, error) {
	for _, acc := range accounts {
		s.Put(acc)
	}
	return int64(len(accounts)), nil
}
