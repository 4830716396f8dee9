package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Queue keys.
const (
	TransactionEventsQueue = "transaction_events"
	CreditRemindersQueue   = "credit_reminders"
)

// EventQueue pushes post-commit events to Redis. Publishing is best-effort
// and never part of a unit of work; a nil client disables it.
type EventQueue struct {
	redis *redis.Client
	log   *logrus.Logger
}

func NewEventQueue(client *redis.Client, log *logrus.Logger) *EventQueue {
	return &EventQueue{redis: client, log: log}
}

// PublishTransaction queues a committed transaction for downstream consumers
// (notifications, reporting).
func (q *EventQueue) PublishTransaction(ctx context.Context, t *models.Transaction) {
	if q == nil || q.redis == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		q.log.WithError(err).Warn("failed to encode transaction event")
		return
	}
	if err := q.redis.RPush(ctx, TransactionEventsQueue, data).Err(); err != nil {
		q.log.WithError(err).WithField("reference", t.Reference).Warn("failed to queue transaction event")
	}
}

// ReminderEvent is pushed for each credit past its payment date.
type ReminderEvent struct {
	CreditID        string    `json:"credit_id"`
	UserID          string    `json:"user_id"`
	NextPaymentDate time.Time `json:"next_payment_date"`
}

// PublishReminder queues an overdue-payment reminder.
func (q *EventQueue) PublishReminder(ctx context.Context, ev ReminderEvent) {
	if q == nil || q.redis == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		q.log.WithError(err).Warn("failed to encode reminder event")
		return
	}
	if err := q.redis.RPush(ctx, CreditRemindersQueue, data).Err(); err != nil {
		q.log.WithError(err).WithField("credit_id", ev.CreditID).Warn("failed to queue reminder event")
	}
}
