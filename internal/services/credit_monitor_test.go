package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCreditMonitor_Sweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	monitor := NewCreditMonitor(db, fixedClock{now: testNow}, NewEventQueue(nil, testLogger()), testLogger())

	t.Run("counts overdue open credits", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, r.user_id, c.next_payment_date FROM credits c JOIN credit_requests r ON r.id = c.credit_request_id WHERE c.is_completed = false AND c.next_payment_date < \\$1").
			WithArgs(testNow).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "next_payment_date"}).
				AddRow("cr1", "u1", testNow.Add(-48*time.Hour)).
				AddRow("cr2", "u2", testNow.Add(-24*time.Hour)))

		count, err := monitor.Sweep(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing overdue", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, r.user_id, c.next_payment_date FROM credits").
			WithArgs(testNow).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "next_payment_date"}))

		count, err := monitor.Sweep(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
