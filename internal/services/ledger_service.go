package services

import (
	"context"
	"database/sql"

	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerService owns accounts and their balances. It is a pure
// balance-arithmetic primitive: no logging, no business validation. Balance
// mutations only happen inside a coordinator-managed transaction, on rows
// locked with FOR UPDATE, so a balance check and its mutation are one atomic
// step.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

const accountColumns = `id, account_number, type, balance, user_id, created_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.Type, &a.Balance, &a.UserID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LockAccount loads an account row under FOR UPDATE within tx.
func (s *LedgerService) LockAccount(tx *sql.Tx, accountID string) (*models.Account, error) {
	row := tx.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account %s not found", accountID)
	}
	if err != nil {
		return nil, Internalf(err, "locking account %s", accountID)
	}
	return account, nil
}

// LockAccountByNumber loads an account by its public number under FOR UPDATE.
func (s *LedgerService) LockAccountByNumber(tx *sql.Tx, accountNumber string) (*models.Account, error) {
	row := tx.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE account_number = $1 FOR UPDATE`, accountNumber)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account %s not found", accountNumber)
	}
	if err != nil {
		return nil, Internalf(err, "locking account %s", accountNumber)
	}
	return account, nil
}

// LockSavingsAccountByUser loads the user's savings account under FOR UPDATE.
func (s *LedgerService) LockSavingsAccountByUser(tx *sql.Tx, userID string) (*models.Account, error) {
	row := tx.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND type = $2 FOR UPDATE`,
		userID, models.AccountSavings)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no savings account for user %s", userID)
	}
	if err != nil {
		return nil, Internalf(err, "locking savings account for user %s", userID)
	}
	return account, nil
}

// ApplyDelta applies a signed delta to a locked account. A negative delta
// that would drive the balance below zero is rejected with no effect. On
// success the account's in-memory balance is updated and the new balance
// returned.
func (s *LedgerService) ApplyDelta(tx *sql.Tx, account *models.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, Preconditionf("insufficient balance on account %s", account.AccountNumber)
	}

	result, err := tx.Exec(`UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, account.ID)
	if err != nil {
		return decimal.Zero, Internalf(err, "updating balance of account %s", account.ID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, Internalf(err, "updating balance of account %s", account.ID)
	}
	if affected == 0 {
		return decimal.Zero, Internalf(nil, "account %s vanished mid-transaction", account.ID)
	}

	account.Balance = newBalance
	return newBalance, nil
}

// CreateAccount inserts a new account row within tx.
func (s *LedgerService) CreateAccount(tx *sql.Tx, account *models.Account) error {
	_, err := tx.Exec(`INSERT INTO accounts (id, account_number, type, balance, user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.AccountNumber, account.Type, account.Balance, account.UserID, account.CreatedAt)
	if err != nil {
		return Internalf(err, "creating account %s", account.AccountNumber)
	}
	return nil
}

// GetAccountByNumber is a snapshot-consistent read outside any unit of work.
func (s *LedgerService) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
	var a models.Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.Type, &a.Balance, &a.UserID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account %s not found", accountNumber)
	}
	if err != nil {
		return nil, Internalf(err, "fetching account %s", accountNumber)
	}
	return &a, nil
}

// GetBalance returns the current balance of an account by number.
func (s *LedgerService) GetBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := s.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// ListByUser returns all accounts held by a user.
func (s *LedgerService) ListByUser(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, Internalf(err, "listing accounts for user %s", userID)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.Type, &a.Balance, &a.UserID, &a.CreatedAt); err != nil {
			return nil, Internalf(err, "scanning account row")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, Internalf(err, "listing accounts for user %s", userID)
	}
	return accounts, nil
}
