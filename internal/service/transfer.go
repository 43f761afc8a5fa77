package service

import (
	"context"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

// Transfer moves money between two accounts within one transaction, recording
// a TRANSFER_OUT and a TRANSFER_IN entry. Only the debit leg is synced
// downstream after commit.
func (s *LedgerService) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	var result domain.TransferResult

	err := store.RunInTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.FindAccount(ctx, req.FromAccountNumber); err != nil {
			return err
		}
		if req.FromAccountNumber == req.ToAccountNumber {
			return domain.ErrSameAccount
		}

		// Locked in account-number order regardless of transfer direction.
		accounts, err := tx.LockAccounts(ctx, req.FromAccountNumber, req.ToAccountNumber)
		if err != nil {
			return err
		}
		from, to := accounts[req.FromAccountNumber], accounts[req.ToAccountNumber]

		if !from.MatchPassword(req.Password) {
			return domain.ErrUnauthorized
		}
		if err := from.Withdraw(req.Amount); err != nil {
			return err
		}
		if err := to.Deposit(req.Amount); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, from); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, to); err != nil {
			return err
		}

		debit := &domain.HistoryRecord{
			AccountNumber:  from.Number,
			Amount:         req.Amount,
			Kind:           domain.KindTransferOut,
			Category:       domain.CategoryTransfer,
			Name:           label(req.Memo, domain.DefaultTransferOutName),
			TransferTarget: strPtr(to.Number),
		}
		if err := tx.AppendHistory(ctx, debit); err != nil {
			return err
		}
		credit := &domain.HistoryRecord{
			AccountNumber:  to.Number,
			Amount:         req.Amount,
			Kind:           domain.KindTransferIn,
			Category:       domain.CategoryTransfer,
			Name:           label(req.Memo, domain.DefaultTransferInName),
			TransferTarget: strPtr(from.Number),
		}
		if err := tx.AppendHistory(ctx, credit); err != nil {
			return err
		}
		s.afterCommit(tx, debit)

		result = domain.TransferResult{
			DebitHistoryID:     debit.ID,
			CreditHistoryID:    credit.ID,
			SourceBalance:      from.Balance,
			DestinationBalance: to.Balance,
		}
		return nil
	})
	s.observe("transfer", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer committed",
		"from", req.FromAccountNumber,
		"to", req.ToAccountNumber,
		"amount", req.Amount,
		"debit_history_id", result.DebitHistoryID,
		"credit_history_id", result.CreditHistoryID,
	)
	return &result, nil
}

func label(memo *string, fallback string) string {
	if memo != nil {
		return *memo
	}
	return fallback
}

func strPtr(s string) *string {
	return &s
}
