package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func transactionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "type", "amount", "description", "reference",
		"user_id", "account_id", "counter_account_id", "processed_by", "created_at",
	})
}

func TestTransactionLog_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	log := NewTransactionLog(db)

	mock.ExpectBegin()
	tx, _ := db.Begin()

	txn := &models.Transaction{
		ID:        "t1",
		Type:      models.TxDeposit,
		Amount:    decimal.NewFromInt(100),
		Reference: "DEP123",
		UserID:    "u1",
		AccountID: "a1",
		CreatedAt: testNow,
	}
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("t1", "DEPOSIT", decimal.NewFromInt(100), "", "DEP123", "u1", "a1", nil, nil, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, log.Append(tx, txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionLog_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	log := NewTransactionLog(db)

	t.Run("newest first with limit", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM transactions WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
			WithArgs("u1", 20).
			WillReturnRows(transactionRows().
				AddRow("t2", "WITHDRAWAL", "-50", "Cash withdrawal", "WIT2", "u1", "a1", nil, nil, testNow).
				AddRow("t1", "DEPOSIT", "100", "Cash deposit", "DEP1", "u1", "a1", nil, "staff1", testNow))

		transactions, err := log.ListByUser(context.Background(), "u1", 20)
		assert.NoError(t, err)
		assert.Len(t, transactions, 2)
		assert.Equal(t, models.TxWithdrawal, transactions[0].Type)
		assert.True(t, transactions[0].Amount.IsNegative())
		assert.Nil(t, transactions[0].ProcessedBy)
		assert.Equal(t, "staff1", *transactions[1].ProcessedBy)
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM transactions WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
			WithArgs("ghost", 20).
			WillReturnRows(transactionRows())

		transactions, err := log.ListByUser(context.Background(), "ghost", 20)
		assert.NoError(t, err)
		assert.Empty(t, transactions)
		assert.NotNil(t, transactions)
	})
}
