package database

import "database/sql"

// Five durable relations plus users. Transactions and repayments reference
// accounts and credits but are never updated or deleted; referential
// integrity is enforced here at the storage layer.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		balance NUMERIC(15,2) NOT NULL DEFAULT 0,
		user_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount NUMERIC(15,2) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id),
		account_id TEXT NOT NULL REFERENCES accounts(id),
		counter_account_id TEXT REFERENCES accounts(id),
		processed_by TEXT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS credit_requests (
		id TEXT PRIMARY KEY,
		amount NUMERIC(15,2) NOT NULL,
		purpose TEXT NOT NULL,
		duration INTEGER,
		status TEXT NOT NULL,
		commission_note TEXT,
		rejection_reason TEXT,
		interest_rate NUMERIC(6,4),
		monthly_payment NUMERIC(15,2),
		approved_at TIMESTAMPTZ,
		user_id TEXT NOT NULL REFERENCES users(id),
		account_id TEXT NOT NULL REFERENCES accounts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS credits (
		id TEXT PRIMARY KEY,
		credit_request_id TEXT NOT NULL UNIQUE REFERENCES credit_requests(id),
		principal_amount NUMERIC(15,2) NOT NULL,
		remaining_amount NUMERIC(15,2) NOT NULL,
		interest_rate NUMERIC(6,4) NOT NULL,
		duration INTEGER NOT NULL,
		monthly_payment NUMERIC(15,2) NOT NULL,
		next_payment_date TIMESTAMPTZ NOT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS repayments (
		id TEXT PRIMARY KEY,
		credit_id TEXT NOT NULL REFERENCES credits(id),
		amount NUMERIC(15,2) NOT NULL,
		principal_paid NUMERIC(15,2) NOT NULL,
		interest_paid NUMERIC(15,2) NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		is_late BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_requests_status ON credit_requests(status)`,
	`CREATE INDEX IF NOT EXISTS idx_credits_open ON credits(next_payment_date) WHERE is_completed = FALSE`,
}

// Migrate creates the tables and indexes when they do not exist yet.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
