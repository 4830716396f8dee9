package services

import (
	"context"
	"database/sql"

	"github.com/kabarecoop/backend/internal/models"
)

// TransactionLog is the append-only audit trail. Rows are inserted only by
// the operation coordinator (and the contract engine / repayment allocator
// it delegates to) as part of a balance mutation; nothing ever updates or
// deletes them.
type TransactionLog struct {
	db *sql.DB
}

func NewTransactionLog(db *sql.DB) *TransactionLog {
	return &TransactionLog{db: db}
}

const transactionColumns = `id, type, amount, description, reference, user_id, account_id, counter_account_id, processed_by, created_at`

// Append inserts one immutable transaction row within tx.
func (l *TransactionLog) Append(tx *sql.Tx, t *models.Transaction) error {
	_, err := tx.Exec(`INSERT INTO transactions (id, type, amount, description, reference, user_id, account_id, counter_account_id, processed_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Type, t.Amount, t.Description, t.Reference, t.UserID, t.AccountID, t.CounterAccountID, t.ProcessedBy, t.CreatedAt)
	if err != nil {
		return Internalf(err, "appending %s transaction %s", t.Type, t.ID)
	}
	return nil
}

func (l *TransactionLog) scanRows(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Description, &t.Reference,
			&t.UserID, &t.AccountID, &t.CounterAccountID, &t.ProcessedBy, &t.CreatedAt)
		if err != nil {
			return nil, Internalf(err, "scanning transaction row")
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, Internalf(err, "reading transaction rows")
	}
	return transactions, nil
}

// ListByUser returns the user's most recent transactions, newest first.
func (l *TransactionLog) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, Internalf(err, "listing transactions for user %s", userID)
	}
	return l.scanRows(rows)
}

// ListByAccount returns an account's most recent transactions, newest first.
func (l *TransactionLog) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, Internalf(err, "listing transactions for account %s", accountID)
	}
	return l.scanRows(rows)
}
