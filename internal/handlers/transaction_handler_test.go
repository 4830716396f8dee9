package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kabarecoop/backend/internal/middleware"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/kabarecoop/backend/internal/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func testToken(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	viper.Set("jwt.secret_key", "test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return signed
}

func newCashDeskRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ledger := services.NewLedgerService(db)
	txlog := services.NewTransactionLog(db)
	coord := services.NewCoordinator(db, ledger, txlog, services.SystemClock, services.NewIDSource(services.SystemClock), log, services.NewEventQueue(nil, log))
	repayments := services.NewRepaymentService(db, coord, ledger, txlog, services.SystemClock, services.NewIDSource(services.SystemClock), services.PrincipalFirst{}, log, services.NewEventQueue(nil, log))
	handler := NewTransactionHandler(coord, repayments)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.RequireRole(models.RoleCashier, models.RoleAdmin))
		r.Post("/cashdesk/deposit", handler.Deposit)
	})
	return r, mock, func() { db.Close() }
}

func TestTransactionHandler_Deposit(t *testing.T) {
	t.Run("cashier deposit round-trip", func(t *testing.T) {
		router, mock, done := newCashDeskRouter(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1 FOR UPDATE").
			WithArgs("SAV100").
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_number", "type", "balance", "user_id", "created_at"}).
				AddRow("a1", "SAV100", "SAVINGS", "100", "u1", time.Now()))
		mock.ExpectExec("UPDATE accounts SET balance = ").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(map[string]any{
			"account_number": "SAV100",
			"amount":         "50",
			"description":    "Window 3",
		})
		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, "staff1", models.RoleCashier))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var txn models.Transaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &txn))
		assert.Equal(t, models.TxDeposit, txn.Type)
		assert.True(t, txn.Amount.Equal(decimal.NewFromInt(50)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("client role is forbidden", func(t *testing.T) {
		router, _, done := newCashDeskRouter(t)
		defer done()

		body, _ := json.Marshal(map[string]any{"account_number": "SAV100", "amount": "50"})
		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, "u1", models.RoleClient))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no token", func(t *testing.T) {
		router, _, done := newCashDeskRouter(t)
		defer done()

		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader([]byte("{}")))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		router, _, done := newCashDeskRouter(t)
		defer done()

		body := []byte(`{"account_number":"SAV100","amount":"50","surprise":true}`)
		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, "staff1", models.RoleCashier))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing account number fails validation", func(t *testing.T) {
		router, _, done := newCashDeskRouter(t)
		defer done()

		body := []byte(`{"amount":"50"}`)
		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, "staff1", models.RoleCashier))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown account maps to not found", func(t *testing.T) {
		router, mock, done := newCashDeskRouter(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, account_number, type, balance, user_id, created_at FROM accounts WHERE account_number = \\$1 FOR UPDATE").
			WithArgs("GHOST").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		body := []byte(`{"account_number":"GHOST","amount":"50"}`)
		req := httptest.NewRequest("POST", "/cashdesk/deposit", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, "staff1", models.RoleCashier))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
