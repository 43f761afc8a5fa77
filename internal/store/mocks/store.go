package mocks

import (
	"context"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/store"
	"github.com/stretchr/testify/mock"
)

// Store is a testify mock of store.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Begin(ctx context.Context) (store.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(store.Tx)
	return tx, args.Error(1)
}

func (m *Store) Close() {
	m.Called()
}

// Tx is a testify mock of store.Tx. Hooks registered with AfterCommit are
// kept and run by Commit when the mocked Commit returns nil.
type Tx struct {
	mock.Mock
	hooks []func()
}

func (m *Tx) FindAccount(ctx context.Context, number string) (*domain.Account, error) {
	args := m.Called(ctx, number)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.Error(1)
}

func (m *Tx) LockAccounts(ctx context.Context, numbers ...string) (map[string]*domain.Account, error) {
	args := m.Called(ctx, numbers)
	accs, _ := args.Get(0).(map[string]*domain.Account)
	return accs, args.Error(1)
}

func (m *Tx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *Tx) AppendHistory(ctx context.Context, rec *domain.HistoryRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *Tx) AfterCommit(fn func()) {
	m.Called(fn)
	m.hooks = append(m.hooks, fn)
}

func (m *Tx) Commit(ctx context.Context) error {
	err := m.Called(ctx).Error(0)
	hooks := m.hooks
	m.hooks = nil
	if err == nil {
		for _, fn := range hooks {
			fn()
		}
	}
	return err
}

func (m *Tx) Rollback(ctx context.Context) error {
	m.hooks = nil
	return m.Called(ctx).Error(0)
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)
