package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the boundary that registers members and issues the signed
// tokens the middleware later resolves into role-tagged actors. The core
// itself never authenticates anyone.
type AuthService struct {
	db        *sql.DB
	coord     *Coordinator
	ledger    *LedgerService
	clock     Clock
	ids       IDSource
	jwtSecret []byte
	jwtExpiry time.Duration
	log       *logrus.Logger
}

func NewAuthService(db *sql.DB, coord *Coordinator, ledger *LedgerService, clock Clock, ids IDSource, jwtSecret string, jwtExpiry time.Duration, log *logrus.Logger) *AuthService {
	return &AuthService{
		db:        db,
		coord:     coord,
		ledger:    ledger,
		clock:     clock,
		ids:       ids,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		log:       log,
	}
}

// Register creates a CLIENT member and their default savings account in one
// unit of work.
func (s *AuthService) Register(ctx context.Context, name, email, phone, password string) (*models.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, Validationf("name, email and password are required")
	}

	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&existing)
	if err == nil {
		return nil, Preconditionf("a user with email %s already exists", email)
	}
	if err != sql.ErrNoRows {
		return nil, Internalf(err, "checking email %s", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, Internalf(err, "hashing password")
	}

	user := &models.User{
		ID:           s.ids.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Phone:        phone,
		Role:         models.RoleClient,
		CreatedAt:    s.clock.Now(),
	}
	err = s.coord.Execute(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (id, email, password_hash, name, phone, role, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Email, user.PasswordHash, user.Name, user.Phone, user.Role, user.CreatedAt)
		if err != nil {
			return Internalf(err, "creating user %s", email)
		}
		return s.ledger.CreateAccount(tx, &models.Account{
			ID:            s.ids.NewID(),
			AccountNumber: s.ids.Reference(RefSavings),
			Type:          models.AccountSavings,
			Balance:       decimal.Zero,
			UserID:        user.ID,
			CreatedAt:     user.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("email", email).Info("member registered")
	return user, nil
}

// Login verifies credentials and returns a signed token carrying the user id
// and role.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, password_hash, name, phone, role, created_at FROM users WHERE email = $1`, email)
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Phone, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return "", nil, Validationf("invalid credentials")
	}
	if err != nil {
		return "", nil, Internalf(err, "fetching user %s", email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, Validationf("invalid credentials")
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtExpiry).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, Internalf(err, "signing token")
	}

	s.log.WithField("email", email).Info("member logged in")
	return signed, &user, nil
}
