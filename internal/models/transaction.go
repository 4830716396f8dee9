package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of balance-affecting event.
type TransactionType string

const (
	TxDeposit     TransactionType = "DEPOSIT"
	TxWithdrawal  TransactionType = "WITHDRAWAL"
	TxTransferOut TransactionType = "TRANSFER_OUT"
	TxTransferIn  TransactionType = "TRANSFER_IN"
	TxRepayment   TransactionType = "REPAYMENT"
)

// Transaction is an immutable ledger entry. Amount is signed: deposits and
// incoming transfers are positive, withdrawals, outgoing transfers and
// repayments are negative. The two sides of a transfer share one reference.
type Transaction struct {
	ID               string          `json:"id" db:"id"`
	Type             TransactionType `json:"type" db:"type"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Description      string          `json:"description" db:"description"`
	Reference        string          `json:"reference" db:"reference"`
	UserID           string          `json:"user_id" db:"user_id"`
	AccountID        string          `json:"account_id" db:"account_id"`
	CounterAccountID *string         `json:"counter_account_id,omitempty" db:"counter_account_id"`
	ProcessedBy      *string         `json:"processed_by,omitempty" db:"processed_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
