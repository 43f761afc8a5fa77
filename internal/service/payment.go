package service

import (
	"context"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

// Payment debits the account for a merchant purchase and records one PAYMENT
// history entry. The entry is synced downstream after the transaction commits.
func (s *LedgerService) Payment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	var result domain.PaymentResult

	err := store.RunInTx(ctx, s.store, func(tx store.Tx) error {
		accounts, err := tx.LockAccounts(ctx, req.AccountNumber)
		if err != nil {
			return err
		}
		acc := accounts[req.AccountNumber]

		if !acc.MatchPassword(req.Password) {
			return domain.ErrUnauthorized
		}
		if err := acc.Withdraw(req.Amount); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}

		rec := &domain.HistoryRecord{
			AccountNumber: acc.Number,
			Amount:        req.Amount,
			Kind:          domain.KindPayment,
			Category:      req.Category,
			Name:          req.MerchantName,
		}
		if err := tx.AppendHistory(ctx, rec); err != nil {
			return err
		}
		s.afterCommit(tx, rec)

		result = domain.PaymentResult{HistoryID: rec.ID, Balance: acc.Balance}
		return nil
	})
	s.observe("payment", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment committed",
		"account", req.AccountNumber,
		"history_id", result.HistoryID,
		"amount", req.Amount,
	)
	return &result, nil
}
