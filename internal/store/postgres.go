package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLSTATEs the database uses to abort one side of a write-write race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const accountColumns = "account_number, password, balance, created_at"

// PostgresStore is the pgx-backed ledger store.
type PostgresStore struct {
	Db       *pgxpool.Pool
	IsoLevel pgx.TxIsoLevel
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{Db: pool, IsoLevel: pgx.ReadCommitted}, nil
}

// Migrate creates the ledger tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.Db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: s.IsoLevel})
	if err != nil {
		return nil, mapPgError(err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx    pgx.Tx
	hooks commitHooks
}

func (t *pgTx) FindAccount(ctx context.Context, number string) (*domain.Account, error) {
	row := t.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE account_number = $1", number)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (t *pgTx) LockAccounts(ctx context.Context, numbers ...string) (map[string]*domain.Account, error) {
	ordered := lockOrder(numbers)

	// Rows are locked in ORDER BY order, which keeps concurrent transfers
	// between the same pair from deadlocking.
	rows, err := t.tx.Query(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_number = ANY($1) ORDER BY account_number FOR UPDATE",
		ordered)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	locked := make(map[string]*domain.Account, len(ordered))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		locked[acc.Number] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}

	if len(locked) != len(ordered) {
		return nil, domain.ErrAccountNotFound
	}
	return locked, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	tag, err := t.tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE account_number = $2", acc.Balance, acc.Number)
	if err != nil {
		return fmt.Errorf("update balance: %w", mapPgError(err))
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, rec *domain.HistoryRecord) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO account_history (account_id, amount, kind, category, name, transfer_target)
		SELECT id, $2, $3, $4, $5, $6 FROM accounts WHERE account_number = $1
		RETURNING id, created_at`,
		rec.AccountNumber, rec.Amount, string(rec.Kind), string(rec.Category), rec.Name, rec.TransferTarget,
	).Scan(&rec.ID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("insert history: %w", mapPgError(err))
	}
	return nil
}

func (t *pgTx) AfterCommit(fn func()) {
	t.hooks.add(fn)
}

// Commit ignores cancellation of ctx: a client that disconnects mid-COMMIT must
// not turn a durable commit into an error and drop its hooks.
func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(context.WithoutCancel(ctx)); err != nil {
		t.hooks.discard()
		return fmt.Errorf("tx commit failed: %w", mapPgError(err))
	}
	t.hooks.run()
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	t.hooks.discard()
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(&acc.Number, &acc.Password, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", mapPgError(err))
	}
	return &acc, nil
}

// mapPgError turns lock-conflict aborts into domain.ErrConflict and leaves
// everything else untouched.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// CountAccounts returns the number of accounts in the table.
func (s *PostgresStore) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

// SeedAccounts bulk-inserts accounts with COPY.
func (s *PostgresStore) SeedAccounts(ctx context.Context, accounts []domain.Account) (int64, error) {
	rows := make([][]interface{}, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, []interface{}{acc.Number, acc.Password, acc.Balance, acc.CreatedAt})
	}

	n, err := s.Db.CopyFrom(ctx,
		pgx.Identifier{"accounts"},
		[]string{"account_number", "password", "balance", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", err)
	}
	return n, nil
}
