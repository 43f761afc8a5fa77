package domain

import (
	"crypto/subtle"
	"math"
	"time"
)

// Account is a balance-bearing entity identified by its account number.
// Balance is only changed through Withdraw and Deposit.
type Account struct {
	Number    string    `json:"accountNumber"`
	Password  string    `json:"-"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// Withdraw debits amount from the account. The balance never goes negative.
func (a *Account) Withdraw(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	a.Balance -= amount
	return nil
}

// Deposit credits amount to the account.
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance > math.MaxInt64-amount {
		return ErrInvalidAmount
	}
	a.Balance += amount
	return nil
}

// MatchPassword reports whether candidate equals the stored account PIN.
func (a *Account) MatchPassword(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(a.Password), []byte(candidate)) == 1
}
