package services

import (
	"context"
	"database/sql"

	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Decision is a workflow action requested by a staff actor.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionValidate Decision = "validate"
)

type transitionKey struct {
	role     models.Role
	decision Decision
}

type transition struct {
	from   []models.CreditStatus
	to     models.CreditStatus
	reason string // rejection reason recorded on the request, empty for approvals
}

// transitions is the complete workflow: which role may take which decision
// from which statuses. Anything not in this table is refused before any
// mutation.
var transitions = map[transitionKey]transition{
	{models.RoleCreditCommission, DecisionApprove}: {
		from: []models.CreditStatus{models.CreditPending, models.CreditUnderAnalysis},
		to:   models.CreditCommissionApproved,
	},
	{models.RoleCreditCommission, DecisionReject}: {
		from:   []models.CreditStatus{models.CreditPending, models.CreditUnderAnalysis},
		to:     models.CreditCommissionRejected,
		reason: "Rejected by the credit commission",
	},
	{models.RoleCreditAgent, DecisionValidate}: {
		from: []models.CreditStatus{models.CreditCommissionApproved},
		to:   models.CreditAgentValidated,
	},
	{models.RoleCreditAgent, DecisionReject}: {
		from:   []models.CreditStatus{models.CreditCommissionApproved},
		to:     models.CreditAgentRejected,
		reason: "Rejected by the credit agent",
	},
}

func statusIn(status models.CreditStatus, set []models.CreditStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// CreditWorkflowService advances credit requests through the approval
// pipeline. Transitions on the same request serialize on a FOR UPDATE lock,
// so two concurrent decisions cannot both succeed.
type CreditWorkflowService struct {
	db       *sql.DB
	coord    *Coordinator
	ledger   *LedgerService
	contract *CreditContractEngine
	clock    Clock
	ids      IDSource
	log      *logrus.Logger
}

func NewCreditWorkflowService(db *sql.DB, coord *Coordinator, ledger *LedgerService, contract *CreditContractEngine, clock Clock, ids IDSource, log *logrus.Logger) *CreditWorkflowService {
	return &CreditWorkflowService{
		db:       db,
		coord:    coord,
		ledger:   ledger,
		contract: contract,
		clock:    clock,
		ids:      ids,
		log:      log,
	}
}

const creditRequestColumns = `id, amount, purpose, duration, status, commission_note, rejection_reason, interest_rate, monthly_payment, approved_at, user_id, account_id, created_at`

func scanCreditRequest(scanner interface{ Scan(...any) error }) (*models.CreditRequest, error) {
	var r models.CreditRequest
	err := scanner.Scan(&r.ID, &r.Amount, &r.Purpose, &r.Duration, &r.Status,
		&r.CommissionNote, &r.RejectionReason, &r.InterestRate, &r.MonthlyPayment,
		&r.ApprovedAt, &r.UserID, &r.AccountID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Submit files a new credit request against the actor's savings account,
// starting at PENDING.
func (s *CreditWorkflowService) Submit(ctx context.Context, actor models.Actor, amount decimal.Decimal, purpose string, duration *int) (*models.CreditRequest, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if purpose == "" {
		return nil, Validationf("purpose is required")
	}
	if duration != nil && *duration < 1 {
		return nil, Validationf("duration must be at least one month")
	}

	var req *models.CreditRequest
	err := s.coord.Execute(ctx, func(tx *sql.Tx) error {
		account, err := s.ledger.LockSavingsAccountByUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		req = &models.CreditRequest{
			ID:        s.ids.NewID(),
			Amount:    amount,
			Purpose:   purpose,
			Duration:  duration,
			Status:    models.CreditPending,
			UserID:    actor.UserID,
			AccountID: account.ID,
			CreatedAt: s.clock.Now(),
		}
		_, err = tx.Exec(`INSERT INTO credit_requests (id, amount, purpose, duration, status, user_id, account_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			req.ID, req.Amount, req.Purpose, req.Duration, req.Status, req.UserID, req.AccountID, req.CreatedAt)
		if err != nil {
			return Internalf(err, "creating credit request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"credit_request": req.ID, "user": actor.UserID}).Info("credit request submitted")
	return req, nil
}

// Decide applies a commission or agent decision. The status guard and the
// status write happen inside one unit of work; agent validation additionally
// originates and funds the credit contract in that same unit.
func (s *CreditWorkflowService) Decide(ctx context.Context, actor models.Actor, requestID string, decision Decision, note *string) (*models.CreditRequest, error) {
	t, ok := transitions[transitionKey{role: actor.Role, decision: decision}]
	if !ok {
		return nil, Validationf("decision %q is not available to role %s", decision, actor.Role)
	}

	var req *models.CreditRequest
	err := s.coord.Execute(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT `+creditRequestColumns+` FROM credit_requests WHERE id = $1 FOR UPDATE`, requestID)
		var err error
		req, err = scanCreditRequest(row)
		if err == sql.ErrNoRows {
			return NotFoundf("credit request %s not found", requestID)
		}
		if err != nil {
			return Internalf(err, "locking credit request %s", requestID)
		}

		if !statusIn(req.Status, t.from) {
			return Preconditionf("credit request %s cannot be processed in status %s", requestID, req.Status)
		}

		if t.to == models.CreditAgentValidated {
			_, err := s.contract.Originate(tx, req)
			return err
		}

		var reason *string
		if t.reason != "" {
			r := t.reason
			reason = &r
		}
		// Only commission decisions carry a free-text note, whatever the outcome.
		if actor.Role != models.RoleCreditCommission {
			note = nil
		}
		_, err = tx.Exec(`UPDATE credit_requests SET status = $1, commission_note = COALESCE($2, commission_note), rejection_reason = COALESCE($3, rejection_reason) WHERE id = $4`,
			t.to, note, reason, requestID)
		if err != nil {
			return Internalf(err, "updating credit request %s", requestID)
		}

		req.Status = t.to
		if note != nil {
			req.CommissionNote = note
		}
		if reason != nil {
			req.RejectionReason = reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"credit_request": requestID,
		"decision":       string(decision),
		"status":         string(req.Status),
	}).Info("credit request decided")
	return req, nil
}

func (s *CreditWorkflowService) list(ctx context.Context, query string, args ...any) ([]models.CreditRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Internalf(err, "listing credit requests")
	}
	defer rows.Close()

	requests := []models.CreditRequest{}
	for rows.Next() {
		r, err := scanCreditRequest(rows)
		if err != nil {
			return nil, Internalf(err, "scanning credit request row")
		}
		requests = append(requests, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, Internalf(err, "listing credit requests")
	}
	return requests, nil
}

// ListByUser returns the member's own requests, newest first.
func (s *CreditWorkflowService) ListByUser(ctx context.Context, userID string) ([]models.CreditRequest, error) {
	return s.list(ctx, `SELECT `+creditRequestColumns+` FROM credit_requests WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListForCommission returns the requests awaiting a commission decision.
func (s *CreditWorkflowService) ListForCommission(ctx context.Context) ([]models.CreditRequest, error) {
	return s.list(ctx, `SELECT `+creditRequestColumns+` FROM credit_requests WHERE status IN ($1, $2) ORDER BY created_at DESC`,
		models.CreditPending, models.CreditUnderAnalysis)
}

// ListForAgent returns the agent's queue: commission-approved requests plus
// the agent's own past decisions.
func (s *CreditWorkflowService) ListForAgent(ctx context.Context) ([]models.CreditRequest, error) {
	return s.list(ctx, `SELECT `+creditRequestColumns+` FROM credit_requests WHERE status IN ($1, $2, $3) ORDER BY created_at DESC`,
		models.CreditCommissionApproved, models.CreditAgentValidated, models.CreditAgentRejected)
}
