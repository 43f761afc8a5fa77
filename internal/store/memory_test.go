package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(
		domain.Account{Number: "1001-2000-3001", Password: "1234", Balance: 10000},
		domain.Account{Number: "2002-3000-4001", Password: "5678", Balance: 500},
	)
}

func TestMemoryStoreCommitAppliesStagedWrites(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	accs, err := tx.LockAccounts(ctx, "1001-2000-3001")
	require.NoError(t, err)
	acc := accs["1001-2000-3001"]
	require.NoError(t, acc.Withdraw(3000))
	require.NoError(t, tx.SaveAccount(ctx, acc))

	rec := &domain.HistoryRecord{AccountNumber: acc.Number, Amount: 3000, Kind: domain.KindPayment, Category: domain.CategoryCafe}
	require.NoError(t, tx.AppendHistory(ctx, rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	// Nothing is visible before commit.
	committed, _ := s.Account("1001-2000-3001")
	assert.Equal(t, int64(10000), committed.Balance)
	assert.Empty(t, s.History())

	require.NoError(t, tx.Commit(ctx))

	committed, _ = s.Account("1001-2000-3001")
	assert.Equal(t, int64(7000), committed.Balance)
	require.Len(t, s.History(), 1)
	assert.Equal(t, int64(1), s.History()[0].ID)
}

func TestMemoryStoreRollbackDiscardsWrites(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	hookRan := false
	err := RunInTx(ctx, s, func(tx Tx) error {
		accs, err := tx.LockAccounts(ctx, "1001-2000-3001")
		if err != nil {
			return err
		}
		acc := accs["1001-2000-3001"]
		acc.Balance = 1
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, &domain.HistoryRecord{AccountNumber: acc.Number, Amount: 1}); err != nil {
			return err
		}
		tx.AfterCommit(func() { hookRan = true })
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.False(t, hookRan)
	committed, _ := s.Account("1001-2000-3001")
	assert.Equal(t, int64(10000), committed.Balance)
	assert.Empty(t, s.History())

	// The row lock was released.
	done := make(chan struct{})
	go func() {
		_ = RunInTx(ctx, s, func(tx Tx) error {
			_, err := tx.LockAccounts(ctx, "1001-2000-3001")
			return err
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock was not released on rollback")
	}
}

func TestMemoryStoreHooksRunAfterCommit(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var order []string
	err := RunInTx(ctx, s, func(tx Tx) error {
		tx.AfterCommit(func() {
			_, ok := s.Account("1001-2000-3001")
			order = append(order, "hook")
			assert.True(t, ok)
		})
		order = append(order, "body")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, order)
}

func TestMemoryStoreLockAccountsMissing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := RunInTx(ctx, s, func(tx Tx) error {
		_, err := tx.LockAccounts(ctx, "1001-2000-3001", "9999-9999-9999")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = RunInTx(ctx, s, func(tx Tx) error {
		_, err := tx.FindAccount(ctx, "9999-9999-9999")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMemoryStoreSaveRequiresLock(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := RunInTx(ctx, s, func(tx Tx) error {
		acc, err := tx.FindAccount(ctx, "1001-2000-3001")
		if err != nil {
			return err
		}
		return tx.SaveAccount(ctx, acc)
	})
	assert.Error(t, err)
}

func TestMemoryStoreOppositeLockOrderDoesNotDeadlock(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = RunInTx(ctx, s, func(tx Tx) error {
				_, err := tx.LockAccounts(ctx, "1001-2000-3001", "2002-3000-4001")
				return err
			})
		}()
		go func() {
			defer wg.Done()
			_ = RunInTx(ctx, s, func(tx Tx) error {
				_, err := tx.LockAccounts(ctx, "2002-3000-4001", "1001-2000-3001")
				return err
			})
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transactions deadlocked")
	}
}

func TestMemoryStoreRollbackAfterCommitIsNoop(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
	assert.Error(t, tx.Commit(ctx))
}

func TestLockOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"1001-2000-3001", "2002-3000-4001"},
		lockOrder([]string{"2002-3000-4001", "1001-2000-3001", "2002-3000-4001"}))
}

func TestCommitHooksRecoverPanics(t *testing.T) {
	var h commitHooks
	ran := false
	h.add(func() { panic("boom") })
	h.add(func() { ran = true })

	assert.NotPanics(t, h.run)
	assert.True(t, ran)
}

func TestMemoryStoreSeed(t *testing.T) {
	ctx := context.Background()
	backend, err := Open(ctx, "memory", "", "")
	require.NoError(t, err)

	require.NoError(t, backend.Migrate(ctx))
	n, err := backend.SeedAccounts(ctx, DemoAccounts(3, 10000))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := backend.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	err = RunInTx(ctx, backend, func(tx Tx) error {
		acc, err := tx.FindAccount(ctx, DemoAccountNumber(2))
		if err != nil {
			return err
		}
		assert.Equal(t, int64(10000), acc.Balance)
		assert.True(t, acc.MatchPassword(DemoPassword))
		return nil
	})
	require.NoError(t, err)
}

func TestDemoAccountNumber(t *testing.T) {
	assert.Equal(t, "1000-0000-0001", DemoAccountNumber(1))
	assert.Equal(t, "1000-0001-0000", DemoAccountNumber(10000))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "", "")
	assert.Error(t, err)
}
