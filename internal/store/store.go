package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// AccountStore loads and persists accounts inside a transaction.
type AccountStore interface {
	// FindAccount reads the account without locking it.
	FindAccount(ctx context.Context, number string) (*domain.Account, error)

	// LockAccounts loads and row-locks every account in ascending account-number
	// order, holding the locks until the transaction ends. It returns
	// domain.ErrAccountNotFound if any of the numbers does not exist.
	// Call it at most once per transaction.
	LockAccounts(ctx context.Context, numbers ...string) (map[string]*domain.Account, error)

	// SaveAccount persists the balance of an account locked by this transaction.
	SaveAccount(ctx context.Context, acc *domain.Account) error
}

// HistoryStore appends history records. AppendHistory assigns rec.ID and
// rec.CreatedAt, and the row is visible to the same transaction on return.
type HistoryStore interface {
	AppendHistory(ctx context.Context, rec *domain.HistoryRecord) error
}

// Tx is one unit of work against the ledger.
type Tx interface {
	AccountStore
	HistoryStore

	// AfterCommit registers fn to run once, after and only after Commit succeeds.
	AfterCommit(fn func())

	Commit(ctx context.Context) error

	// Rollback aborts the transaction and drops registered hooks. It is a no-op
	// after a successful Commit.
	Rollback(ctx context.Context) error
}

// Store opens ledger transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// RunInTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func RunInTx(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockOrder returns the distinct account numbers in the global lock order.
func lockOrder(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
