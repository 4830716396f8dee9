package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes savings accounts from credit accounts.
type AccountType string

const (
	AccountSavings AccountType = "SAVINGS"
	AccountCredit  AccountType = "CREDIT"
)

// Account holds a member's balance. The balance is mutated only through the
// operation coordinator and always equals the sum of committed transaction
// deltas referencing the account.
type Account struct {
	ID            string          `json:"id" db:"id"`
	AccountNumber string          `json:"account_number" db:"account_number"`
	Type          AccountType     `json:"type" db:"type"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	UserID        string          `json:"user_id" db:"user_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
