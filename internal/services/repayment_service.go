package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AllocationPolicy splits a payment between principal and interest.
type AllocationPolicy interface {
	Allocate(payment decimal.Decimal, credit *models.Credit) (principal, interest decimal.Decimal)
}

// PrincipalFirst allocates the whole payment to principal and nothing to
// interest. This mirrors the cooperative's current repayment policy; it is a
// deliberate simplification, and a schedule-aware split can replace it
// without touching the allocator.
type PrincipalFirst struct{}

func (PrincipalFirst) Allocate(payment decimal.Decimal, _ *models.Credit) (decimal.Decimal, decimal.Decimal) {
	return payment, decimal.Zero
}

// RepaymentResult is the success payload of an applied repayment.
type RepaymentResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Repayment   *models.Repayment   `json:"repayment"`
	Remaining   decimal.Decimal     `json:"remaining"`
}

// RepaymentService applies payments against open credits. Each application
// is one unit of work: the ledger debit, the REPAYMENT row, the repayment
// record and the credit update commit together or not at all.
type RepaymentService struct {
	db     *sql.DB
	coord  *Coordinator
	ledger *LedgerService
	txlog  *TransactionLog
	clock  Clock
	ids    IDSource
	policy AllocationPolicy
	log    *logrus.Logger
	events *EventQueue
}

func NewRepaymentService(db *sql.DB, coord *Coordinator, ledger *LedgerService, txlog *TransactionLog, clock Clock, ids IDSource, policy AllocationPolicy, log *logrus.Logger, events *EventQueue) *RepaymentService {
	return &RepaymentService{
		db:     db,
		coord:  coord,
		ledger: ledger,
		txlog:  txlog,
		clock:  clock,
		ids:    ids,
		policy: policy,
		log:    log,
		events: events,
	}
}

const creditColumns = `c.id, c.credit_request_id, c.principal_amount, c.remaining_amount, c.interest_rate, c.duration, c.monthly_payment, c.next_payment_date, c.is_completed, c.created_at`

// Apply pays amount against the credit. The remaining amount is floored at
// zero: overpayment is absorbed, not refunded. The credit completes exactly
// when the remaining amount reaches zero; otherwise the next payment date
// advances by 30 days.
func (s *RepaymentService) Apply(ctx context.Context, actor models.Actor, creditID string, amount decimal.Decimal, description string) (*RepaymentResult, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if description == "" {
		description = "Credit repayment"
	}

	var result *RepaymentResult
	err := s.coord.Execute(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT `+creditColumns+`, r.user_id, r.account_id FROM credits c JOIN credit_requests r ON r.id = c.credit_request_id WHERE c.id = $1 FOR UPDATE OF c`, creditID)
		var credit models.Credit
		var userID, accountID string
		err := row.Scan(&credit.ID, &credit.CreditRequestID, &credit.PrincipalAmount,
			&credit.RemainingAmount, &credit.InterestRate, &credit.Duration, &credit.MonthlyPayment,
			&credit.NextPaymentDate, &credit.IsCompleted, &credit.CreatedAt, &userID, &accountID)
		if err == sql.ErrNoRows {
			return NotFoundf("credit %s not found", creditID)
		}
		if err != nil {
			return Internalf(err, "locking credit %s", creditID)
		}
		if credit.IsCompleted {
			return Preconditionf("credit %s is already completed", creditID)
		}

		account, err := s.ledger.LockAccount(tx, accountID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.ApplyDelta(tx, account, amount.Neg()); err != nil {
			return err
		}

		now := s.clock.Now()
		txn := &models.Transaction{
			ID:          s.ids.NewID(),
			Type:        models.TxRepayment,
			Amount:      amount.Neg(),
			Description: description,
			Reference:   s.ids.Reference(RefRepayment),
			UserID:      userID,
			AccountID:   accountID,
			ProcessedBy: processedBy(actor, userID),
			CreatedAt:   now,
		}
		if err := s.txlog.Append(tx, txn); err != nil {
			return err
		}

		principalPaid, interestPaid := s.policy.Allocate(amount, &credit)
		dueDate := credit.NextPaymentDate
		repayment := &models.Repayment{
			ID:            s.ids.NewID(),
			CreditID:      credit.ID,
			Amount:        amount,
			PrincipalPaid: principalPaid,
			InterestPaid:  interestPaid,
			DueDate:       dueDate,
			IsLate:        now.After(dueDate),
			CreatedAt:     now,
		}
		_, err = tx.Exec(`INSERT INTO repayments (id, credit_id, amount, principal_paid, interest_paid, due_date, is_late, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			repayment.ID, repayment.CreditID, repayment.Amount, repayment.PrincipalPaid,
			repayment.InterestPaid, repayment.DueDate, repayment.IsLate, repayment.CreatedAt)
		if err != nil {
			return Internalf(err, "recording repayment for credit %s", creditID)
		}

		remaining := credit.RemainingAmount.Sub(principalPaid)
		completed := !remaining.IsPositive()
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		nextPayment := credit.NextPaymentDate
		if !completed {
			nextPayment = now.Add(30 * 24 * time.Hour)
		}
		_, err = tx.Exec(`UPDATE credits SET remaining_amount = $1, is_completed = $2, next_payment_date = $3 WHERE id = $4`,
			remaining, completed, nextPayment, credit.ID)
		if err != nil {
			return Internalf(err, "updating credit %s", creditID)
		}

		result = &RepaymentResult{Transaction: txn, Repayment: repayment, Remaining: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"credit":    creditID,
		"remaining": result.Remaining.String(),
	}).Info("repayment applied")
	s.events.PublishTransaction(ctx, result.Transaction)
	return result, nil
}

// ApplyByAccount resolves the account holder's open credit and applies the
// payment to it, the cashier-desk flow. The resolution is a plain read; the
// guard is re-checked under lock inside Apply.
func (s *RepaymentService) ApplyByAccount(ctx context.Context, actor models.Actor, accountNumber string, amount decimal.Decimal, description string) (*RepaymentResult, error) {
	account, err := s.ledger.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	var creditID string
	row := s.db.QueryRowContext(ctx,
		`SELECT c.id FROM credits c JOIN credit_requests r ON r.id = c.credit_request_id WHERE r.user_id = $1 AND c.is_completed = false ORDER BY c.created_at LIMIT 1`,
		account.UserID)
	err = row.Scan(&creditID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no active credit for account %s", accountNumber)
	}
	if err != nil {
		return nil, Internalf(err, "finding active credit for account %s", accountNumber)
	}

	return s.Apply(ctx, actor, creditID, amount, description)
}

// GetCredit returns a credit by id, a snapshot read.
func (s *RepaymentService) GetCredit(ctx context.Context, creditID string) (*models.Credit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+creditColumns+` FROM credits c WHERE c.id = $1`, creditID)
	var c models.Credit
	err := row.Scan(&c.ID, &c.CreditRequestID, &c.PrincipalAmount, &c.RemainingAmount,
		&c.InterestRate, &c.Duration, &c.MonthlyPayment, &c.NextPaymentDate, &c.IsCompleted, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("credit %s not found", creditID)
	}
	if err != nil {
		return nil, Internalf(err, "fetching credit %s", creditID)
	}
	return &c, nil
}
