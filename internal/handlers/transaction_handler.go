package handlers

import (
	"net/http"

	"github.com/kabarecoop/backend/internal/middleware"
	"github.com/kabarecoop/backend/internal/services"
	"github.com/shopspring/decimal"
)

// TransactionHandler exposes the cash-desk and self-service ledger
// operations. Role checks happen at the router via RequireRole; the handler
// passes the resolved actor straight to the core.
type TransactionHandler struct {
	coord      *services.Coordinator
	repayments *services.RepaymentService
	validator  *services.ValidationHelper
}

func NewTransactionHandler(coord *services.Coordinator, repayments *services.RepaymentService) *TransactionHandler {
	return &TransactionHandler{
		coord:      coord,
		repayments: repayments,
		validator:  services.NewValidationHelper(),
	}
}

type cashDeskRequest struct {
	AccountNumber string          `json:"account_number" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Description   string          `json:"description" validate:"max=200"`
}

// Deposit handles a cashier deposit into any account.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req cashDeskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := h.coord.Deposit(r.Context(), actor, req.AccountNumber, req.Amount, req.Description)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Withdrawal handles a cashier withdrawal from any account.
func (h *TransactionHandler) Withdrawal(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req cashDeskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := h.coord.Withdraw(r.Context(), actor, req.AccountNumber, req.Amount, req.Description)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

type selfWithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=200"`
}

// Withdraw handles a member withdrawing from their own savings account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req selfWithdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := h.coord.WithdrawOwn(r.Context(), actor, req.Amount, req.Description)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

type transferRequest struct {
	ToAccountNumber string          `json:"to_account_number" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Description     string          `json:"description" validate:"max=200"`
}

// Transfer moves funds from the member's savings account to another account.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := h.coord.TransferOwn(r.Context(), actor, req.ToAccountNumber, req.Amount, req.Description)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Repayment handles a cashier applying a payment against the account
// holder's open credit.
func (h *TransactionHandler) Repayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req cashDeskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.repayments.ApplyByAccount(r.Context(), actor, req.AccountNumber, req.Amount, req.Description)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
