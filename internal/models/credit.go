package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditStatus is the credit request workflow state.
type CreditStatus string

const (
	CreditPending            CreditStatus = "PENDING"
	CreditUnderAnalysis      CreditStatus = "UNDER_ANALYSIS"
	CreditCommissionApproved CreditStatus = "COMMISSION_APPROVED"
	CreditCommissionRejected CreditStatus = "COMMISSION_REJECTED"
	CreditAgentValidated     CreditStatus = "AGENT_VALIDATED"
	CreditAgentRejected      CreditStatus = "AGENT_REJECTED"
)

// Terminal reports whether no further workflow transition is accepted.
// COMMISSION_APPROVED is terminal for the commission but still awaits the
// agent decision.
func (s CreditStatus) Terminal() bool {
	switch s {
	case CreditCommissionRejected, CreditAgentValidated, CreditAgentRejected:
		return true
	}
	return false
}

// CreditRequest is a member's application for credit. It is created on
// submission and mutated only by workflow transitions.
type CreditRequest struct {
	ID              string           `json:"id" db:"id"`
	Amount          decimal.Decimal  `json:"amount" db:"amount"`
	Purpose         string           `json:"purpose" db:"purpose"`
	Duration        *int             `json:"duration,omitempty" db:"duration"`
	Status          CreditStatus     `json:"status" db:"status"`
	CommissionNote  *string          `json:"commission_note,omitempty" db:"commission_note"`
	RejectionReason *string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty" db:"interest_rate"`
	MonthlyPayment  *decimal.Decimal `json:"monthly_payment,omitempty" db:"monthly_payment"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	UserID          string           `json:"user_id" db:"user_id"`
	AccountID       string           `json:"account_id" db:"account_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// Credit is the originated loan contract, created exactly once when its
// request reaches AGENT_VALIDATED. Mutated only by the repayment allocator.
type Credit struct {
	ID              string          `json:"id" db:"id"`
	CreditRequestID string          `json:"credit_request_id" db:"credit_request_id"`
	PrincipalAmount decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	InterestRate    decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	Duration        int             `json:"duration" db:"duration"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	NextPaymentDate time.Time       `json:"next_payment_date" db:"next_payment_date"`
	IsCompleted     bool            `json:"is_completed" db:"is_completed"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Repayment is one payment event against a credit, split between principal
// and interest by the allocation policy in force.
type Repayment struct {
	ID            string          `json:"id" db:"id"`
	CreditID      string          `json:"credit_id" db:"credit_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PrincipalPaid decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	IsLate        bool            `json:"is_late" db:"is_late"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
