package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/punchamoorthee/ledgerops/internal/domain"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MySQL error numbers for lock conflicts.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

type sqlAccount struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	AccountNumber string    `gorm:"column:account_number;size:20;uniqueIndex;not null"`
	Password      string    `gorm:"size:4;not null"`
	Balance       int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"type:date;not null"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

type sqlHistory struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	AccountID      int64     `gorm:"index;not null"`
	Amount         int64     `gorm:"not null"`
	Kind           string    `gorm:"size:20;not null"`
	Category       string    `gorm:"size:20;not null"`
	Name           string    `gorm:"size:100;not null"`
	TransferTarget *string   `gorm:"size:20"`
	CreatedAt      time.Time `gorm:"type:datetime(6);not null"`
}

func (*sqlHistory) TableName() string {
	return "account_history"
}

// GormConfig configures the MySQL connection used by GormStore.
type GormConfig struct {
	DSN             string
	LogLevel        string // silent, error, warn, info
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	RetryInterval   time.Duration
}

// GormStore is the MySQL ledger store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(cfg GormConfig) (*GormStore, error) {
	gormConfig := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(cfg.LogLevel),
	}

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 10
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var db *gorm.DB
	var err error
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(gormmysql.Open(cfg.DSN), gormConfig)
		if err == nil {
			var rawDB *sql.DB
			rawDB, err = db.DB()
			if err == nil {
				if err = rawDB.Ping(); err == nil {
					break
				}
			}
		}

		if i < retries-1 {
			slog.Warn("mysql connect failed, retrying", "attempt", i+1, "max", retries, "error", err, "retry_in", interval)
			time.Sleep(interval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", retries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &GormStore{db: db}, nil
}

// Migrate creates or updates the ledger tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlHistory{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// CountAccounts returns the number of accounts in the table.
func (s *GormStore) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&sqlAccount{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

// SeedAccounts inserts accounts in batches.
func (s *GormStore) SeedAccounts(ctx context.Context, accounts []domain.Account) (int64, error) {
	rows := make([]sqlAccount, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, sqlAccount{
			AccountNumber: acc.Number,
			Password:      acc.Password,
			Balance:       acc.Balance,
			CreatedAt:     acc.CreatedAt,
		})
	}

	res := s.db.WithContext(ctx).CreateInBatches(rows, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *GormStore) Begin(ctx context.Context) (Tx, error) {
	// database/sql rolls a transaction back when its begin context is cancelled,
	// which could race a COMMIT. Statements still use the caller's ctx.
	tx := s.db.WithContext(context.WithoutCancel(ctx)).Begin(&sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if tx.Error != nil {
		return nil, fmt.Errorf("begin: %w", mapMySQLError(tx.Error))
	}
	return &gormTx{db: tx, ids: make(map[string]int64)}, nil
}

type gormTx struct {
	db    *gorm.DB
	hooks commitHooks
	done  bool

	// ids caches primary keys of accounts read in this transaction.
	ids map[string]int64
}

func (t *gormTx) FindAccount(ctx context.Context, number string) (*domain.Account, error) {
	var row sqlAccount
	err := t.db.WithContext(ctx).Where("account_number = ?", number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", mapMySQLError(err))
	}
	t.ids[row.AccountNumber] = row.ID
	return row.toDomain(), nil
}

func (t *gormTx) LockAccounts(ctx context.Context, numbers ...string) (map[string]*domain.Account, error) {
	ordered := lockOrder(numbers)

	var rows []sqlAccount
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_number IN ?", ordered).
		Order("account_number").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", mapMySQLError(err))
	}
	if len(rows) != len(ordered) {
		return nil, domain.ErrAccountNotFound
	}

	locked := make(map[string]*domain.Account, len(rows))
	for i := range rows {
		t.ids[rows[i].AccountNumber] = rows[i].ID
		locked[rows[i].AccountNumber] = rows[i].toDomain()
	}
	return locked, nil
}

func (t *gormTx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	// MySQL reports changed rows, not matched rows, so RowsAffected is not checked.
	err := t.db.WithContext(ctx).
		Model(&sqlAccount{}).
		Where("account_number = ?", acc.Number).
		Update("balance", acc.Balance).Error
	if err != nil {
		return fmt.Errorf("update balance: %w", mapMySQLError(err))
	}
	return nil
}

func (t *gormTx) AppendHistory(ctx context.Context, rec *domain.HistoryRecord) error {
	accountID, ok := t.ids[rec.AccountNumber]
	if !ok {
		acc, err := t.FindAccount(ctx, rec.AccountNumber)
		if err != nil {
			return err
		}
		accountID = t.ids[acc.Number]
	}

	row := sqlHistory{
		AccountID:      accountID,
		Amount:         rec.Amount,
		Kind:           string(rec.Kind),
		Category:       string(rec.Category),
		Name:           rec.Name,
		TransferTarget: rec.TransferTarget,
		CreatedAt:      time.Now().Truncate(time.Microsecond),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert history: %w", mapMySQLError(err))
	}

	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return nil
}

func (t *gormTx) AfterCommit(fn func()) {
	t.hooks.add(fn)
}

func (t *gormTx) Commit(ctx context.Context) error {
	t.done = true
	if err := t.db.Commit().Error; err != nil {
		t.hooks.discard()
		return fmt.Errorf("tx commit failed: %w", mapMySQLError(err))
	}
	t.hooks.run()
	return nil
}

func (t *gormTx) Rollback(ctx context.Context) error {
	t.hooks.discard()
	if t.done {
		return nil
	}
	t.done = true
	err := t.db.Rollback().Error
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		Number:    a.AccountNumber,
		Password:  a.Password,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

func mapMySQLError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %s", domain.ErrConflict, myErr.Message)
		}
	}
	return err
}

func newGormLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}
	return logger.Default.LogMode(logLevel)
}
