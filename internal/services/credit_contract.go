package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultDuration is applied when a request carries no duration, in months.
const DefaultDuration = 12

// DefaultAnnualRate is the cooperative's flat nominal rate policy.
var DefaultAnnualRate = decimal.NewFromFloat(0.05)

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
)

// ComputeMonthlyPayment returns the level payment of an amortizing loan:
// P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate and n the duration in
// months. A zero rate degenerates to the limit case P/n. The result is
// rounded to 2 decimal places.
func ComputeMonthlyPayment(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	if months < 1 {
		months = 1
	}
	monthlyRate := annualRate.Div(twelve)
	if monthlyRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(months))).Round(2)
	}
	compounded := one.Add(monthlyRate).Pow(decimal.NewFromInt(int64(months)))
	payment := principal.Mul(monthlyRate).Mul(compounded).Div(compounded.Sub(one))
	return payment.Round(2)
}

// CreditContractEngine originates a credit contract when a request reaches
// final agent approval: it writes the computed terms onto the request,
// creates the Credit record and funds the member's account, all within the
// caller's unit of work.
type CreditContractEngine struct {
	ledger     *LedgerService
	txlog      *TransactionLog
	clock      Clock
	ids        IDSource
	annualRate decimal.Decimal
	log        *logrus.Logger
}

func NewCreditContractEngine(ledger *LedgerService, txlog *TransactionLog, clock Clock, ids IDSource, annualRate decimal.Decimal, log *logrus.Logger) *CreditContractEngine {
	return &CreditContractEngine{
		ledger:     ledger,
		txlog:      txlog,
		clock:      clock,
		ids:        ids,
		annualRate: annualRate,
		log:        log,
	}
}

// Originate runs inside the agent-approval transaction. Any failure rolls
// the whole approval back; a partially disbursed credit can never commit.
func (e *CreditContractEngine) Originate(tx *sql.Tx, req *models.CreditRequest) (*models.Credit, error) {
	duration := DefaultDuration
	if req.Duration != nil && *req.Duration > 0 {
		duration = *req.Duration
	}
	rate := e.annualRate
	payment := ComputeMonthlyPayment(req.Amount, rate, duration)
	now := e.clock.Now()

	_, err := tx.Exec(`UPDATE credit_requests SET status = $1, interest_rate = $2, monthly_payment = $3, approved_at = $4 WHERE id = $5`,
		models.CreditAgentValidated, rate, payment, now, req.ID)
	if err != nil {
		return nil, Internalf(err, "approving credit request %s", req.ID)
	}

	credit := &models.Credit{
		ID:              e.ids.NewID(),
		CreditRequestID: req.ID,
		PrincipalAmount: req.Amount,
		RemainingAmount: req.Amount,
		InterestRate:    rate,
		Duration:        duration,
		MonthlyPayment:  payment,
		NextPaymentDate: now.Add(30 * 24 * time.Hour),
		IsCompleted:     false,
		CreatedAt:       now,
	}
	_, err = tx.Exec(`INSERT INTO credits (id, credit_request_id, principal_amount, remaining_amount, interest_rate, duration, monthly_payment, next_payment_date, is_completed, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		credit.ID, credit.CreditRequestID, credit.PrincipalAmount, credit.RemainingAmount,
		credit.InterestRate, credit.Duration, credit.MonthlyPayment, credit.NextPaymentDate,
		credit.IsCompleted, credit.CreatedAt)
	if err != nil {
		return nil, Internalf(err, "creating credit for request %s", req.ID)
	}

	account, err := e.ledger.LockAccount(tx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if _, err := e.ledger.ApplyDelta(tx, account, req.Amount); err != nil {
		return nil, err
	}

	disbursement := &models.Transaction{
		ID:          e.ids.NewID(),
		Type:        models.TxDeposit,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Credit disbursement - %s", req.Purpose),
		Reference:   e.ids.Reference(RefCredit),
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		CreatedAt:   now,
	}
	if err := e.txlog.Append(tx, disbursement); err != nil {
		return nil, err
	}

	req.Status = models.CreditAgentValidated
	req.InterestRate = &rate
	req.MonthlyPayment = &payment
	req.ApprovedAt = &now

	e.log.WithFields(logrus.Fields{
		"credit_request": req.ID,
		"credit":         credit.ID,
		"monthly":        payment.String(),
	}).Info("credit originated")
	return credit, nil
}
