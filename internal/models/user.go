package models

import "time"

// Role is the closed set of actor roles the core accepts. The request layer
// resolves the role before the core is invoked; no operation branches on a
// free-form role string.
type Role string

const (
	RoleClient           Role = "CLIENT"
	RoleCashier          Role = "CASHIER"
	RoleCreditAgent      Role = "CREDIT_AGENT"
	RoleCreditCommission Role = "CREDIT_COMMISSION"
	RoleAdmin            Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleCashier, RoleCreditAgent, RoleCreditCommission, RoleAdmin:
		return true
	}
	return false
}

// Actor is the role-tagged identity handed to the core by the auth boundary.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// User represents a cooperative member or staff account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
