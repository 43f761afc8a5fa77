package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePgTx stands in for a driver transaction; unused methods panic via the
// nil embedded interface.
type fakePgTx struct {
	pgx.Tx
	commitErr error
	commitCtx context.Context
	committed bool
}

func (f *fakePgTx) Commit(ctx context.Context) error {
	f.commitCtx = ctx
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakePgTx) Rollback(ctx context.Context) error {
	// pgx reports a finished transaction this way, whether or not commit succeeded.
	return pgx.ErrTxClosed
}

func TestPgTxCommitFailureDropsHooks(t *testing.T) {
	ctx := context.Background()
	tx := &pgTx{tx: &fakePgTx{commitErr: errors.New("commit lost")}}

	hookRan := false
	tx.AfterCommit(func() { hookRan = true })

	err := tx.Commit(ctx)
	assert.ErrorContains(t, err, "commit lost")
	assert.NoError(t, tx.Rollback(ctx))
	assert.False(t, hookRan)
}

func TestPgTxCommitRunsHooks(t *testing.T) {
	ctx := context.Background()
	fake := &fakePgTx{}
	tx := &pgTx{tx: fake}

	var order []string
	tx.AfterCommit(func() {
		assert.True(t, fake.committed)
		order = append(order, "first")
	})
	tx.AfterCommit(func() { order = append(order, "second") })

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.NoError(t, tx.Rollback(ctx))
}

func TestPgTxCommitIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakePgTx{}
	tx := &pgTx{tx: fake}

	hookRan := false
	tx.AfterCommit(func() { hookRan = true })
	cancel()

	require.NoError(t, tx.Commit(ctx))
	require.NotNil(t, fake.commitCtx)
	assert.NoError(t, fake.commitCtx.Err())
	assert.True(t, hookRan)
}

func TestPgTxRollbackDropsHooks(t *testing.T) {
	ctx := context.Background()
	fake := &fakePgTx{}
	tx := &pgTx{tx: fake}

	hookRan := false
	tx.AfterCommit(func() { hookRan = true })

	assert.NoError(t, tx.Rollback(ctx))
	assert.False(t, fake.committed)
	assert.False(t, hookRan)
}
