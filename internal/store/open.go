package store

import (
	"context"
	"fmt"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// Backend is a Store that can also prepare and seed its own schema.
type Backend interface {
	Store
	Migrate(ctx context.Context) error
	CountAccounts(ctx context.Context) (int64, error)
	SeedAccounts(ctx context.Context, accounts []domain.Account) (int64, error)
}

var (
	_ Backend = (*PostgresStore)(nil)
	_ Backend = (*GormStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)

// Open connects to the backend named by driver: "postgres", "mysql" or "memory".
func Open(ctx context.Context, driver, dsn, logLevel string) (Backend, error) {
	switch driver {
	case "postgres":
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		s, err := NewGormStore(GormConfig{
			DSN:             dsn,
			LogLevel:        logLevel,
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// DemoAccountNumber returns the number of the i-th seeded account, starting at 1.
func DemoAccountNumber(i int) string {
	return fmt.Sprintf("1000-%04d-%04d", i/10000, i%10000)
}

// DemoPassword is the PIN of every seeded account.
const DemoPassword = "1234"

// DemoAccounts builds n accounts with the given opening balance.
func DemoAccounts(n int, balance int64) []domain.Account {
	today := time.Now().Truncate(24 * time.Hour)
	accounts := make([]domain.Account, 0, n)
	for i := 1; i <= n; i++ {
		accounts = append(accounts, domain.Account{
			Number:    DemoAccountNumber(i),
			Password:  DemoPassword,
			Balance:   balance,
			CreatedAt: today,
		})
	}
	return accounts
}
