package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_number", "type", "balance", "user_id", "created_at"})
}

func TestLedgerService_LockAccountByNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1 FOR UPDATE").
			WithArgs("SAV123").
			WillReturnRows(accountRows().AddRow("a1", "SAV123", "SAVINGS", "250", "u1", time.Now()))

		account, err := service.LockAccountByNumber(tx, "SAV123")
		assert.NoError(t, err)
		assert.Equal(t, "a1", account.ID)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(250)))
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1 FOR UPDATE").
			WithArgs("NOPE").
			WillReturnError(sql.ErrNoRows)

		_, err := service.LockAccountByNumber(tx, "NOPE")
		assert.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestLedgerService_ApplyDelta(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("credit updates balance", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		account := &models.Account{ID: "a1", AccountNumber: "SAV123", Balance: decimal.NewFromInt(100)}

		mock.ExpectExec("UPDATE accounts SET balance = \\$1 WHERE id = \\$2").
			WithArgs(decimal.NewFromInt(150), "a1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		newBalance, err := service.ApplyDelta(tx, account, decimal.NewFromInt(50))
		assert.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.NewFromInt(150)))
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(150)))
	})

	t.Run("debit below zero is rejected with no effect", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		account := &models.Account{ID: "a1", AccountNumber: "SAV123", Balance: decimal.NewFromInt(100)}

		_, err := service.ApplyDelta(tx, account, decimal.NewFromInt(101).Neg())
		assert.Error(t, err)
		assert.Equal(t, KindPrecondition, KindOf(err))
		assert.Contains(t, err.Error(), "insufficient balance")
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("debit to exactly zero is allowed", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		account := &models.Account{ID: "a1", AccountNumber: "SAV123", Balance: decimal.NewFromInt(100)}

		mock.ExpectExec("UPDATE accounts SET balance = \\$1 WHERE id = \\$2").
			WithArgs(decimal.NewFromInt(0), "a1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		newBalance, err := service.ApplyDelta(tx, account, decimal.NewFromInt(100).Neg())
		assert.NoError(t, err)
		assert.True(t, newBalance.IsZero())
	})
}

func TestLedgerService_GetAccountByNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1").
			WithArgs("SAV123").
			WillReturnRows(accountRows().AddRow("a1", "SAV123", "SAVINGS", "42.50", "u1", time.Now()))

		account, err := service.GetAccountByNumber(context.Background(), "SAV123")
		assert.NoError(t, err)
		assert.Equal(t, models.AccountSavings, account.Type)
		assert.Equal(t, "42.5", account.Balance.String())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1").
			WithArgs("NOPE").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetAccountByNumber(context.Background(), "NOPE")
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}
