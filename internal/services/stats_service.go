package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const statsCacheKey = "admin:stats"

// AdminStats is the cooperative-wide overview shown to administrators.
type AdminStats struct {
	TotalUsers          int             `json:"total_users"`
	TotalAccounts       int             `json:"total_accounts"`
	TotalBalance        decimal.Decimal `json:"total_balance"`
	TotalCreditRequests int             `json:"total_credit_requests"`
	PendingRequests     int             `json:"pending_requests"`
	ApprovedCredits     int             `json:"approved_credits"`
}

// StatsService aggregates counters over the durable relations, with a short
// Redis cache in front. A nil Redis client simply disables the cache.
type StatsService struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	log      *logrus.Logger
}

func NewStatsService(db *sql.DB, redisClient *redis.Client, cacheTTL time.Duration, log *logrus.Logger) *StatsService {
	return &StatsService{db: db, redis: redisClient, cacheTTL: cacheTTL, log: log}
}

// Overview returns the current admin counters.
func (s *StatsService) Overview(ctx context.Context) (*AdminStats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var stats AdminStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	row := s.db.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM accounts), (SELECT COALESCE(SUM(balance), 0) FROM accounts), (SELECT COUNT(*) FROM credit_requests), (SELECT COUNT(*) FROM credit_requests WHERE status = $1), (SELECT COUNT(*) FROM credit_requests WHERE status = $2)`,
		models.CreditPending, models.CreditAgentValidated)

	var stats AdminStats
	err := row.Scan(&stats.TotalUsers, &stats.TotalAccounts, &stats.TotalBalance,
		&stats.TotalCreditRequests, &stats.PendingRequests, &stats.ApprovedCredits)
	if err != nil {
		return nil, Internalf(err, "aggregating admin stats")
	}

	if s.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, statsCacheKey, data, s.cacheTTL).Err(); err != nil {
				s.log.WithError(err).Warn("failed to cache admin stats")
			}
		}
	}
	return &stats, nil
}
