package services

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
)

// CreditMonitor is the nightly sweep over open credits whose payment date
// has passed. It only reads and publishes reminders; lateness itself is
// recorded on each repayment as it is applied.
type CreditMonitor struct {
	db     *sql.DB
	clock  Clock
	events *EventQueue
	log    *logrus.Logger
}

func NewCreditMonitor(db *sql.DB, clock Clock, events *EventQueue, log *logrus.Logger) *CreditMonitor {
	return &CreditMonitor{db: db, clock: clock, events: events, log: log}
}

// Sweep publishes a reminder for every overdue open credit and returns how
// many it found.
func (m *CreditMonitor) Sweep(ctx context.Context) (int, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT c.id, r.user_id, c.next_payment_date FROM credits c JOIN credit_requests r ON r.id = c.credit_request_id WHERE c.is_completed = false AND c.next_payment_date < $1`,
		m.clock.Now())
	if err != nil {
		return 0, Internalf(err, "querying overdue credits")
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var ev ReminderEvent
		if err := rows.Scan(&ev.CreditID, &ev.UserID, &ev.NextPaymentDate); err != nil {
			return count, Internalf(err, "scanning overdue credit row")
		}
		m.events.PublishReminder(ctx, ev)
		count++
	}
	if err := rows.Err(); err != nil {
		return count, Internalf(err, "reading overdue credit rows")
	}

	if count > 0 {
		m.log.WithField("count", count).Info("overdue credit reminders queued")
	}
	return count, nil
}
