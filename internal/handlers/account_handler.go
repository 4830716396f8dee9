package handlers

import (
	"net/http"
	"strings"

	"github.com/kabarecoop/backend/internal/middleware"
	"github.com/kabarecoop/backend/internal/services"
)

type AccountHandler struct {
	ledger *services.LedgerService
	txlog  *services.TransactionLog
}

func NewAccountHandler(ledger *services.LedgerService, txlog *services.TransactionLog) *AccountHandler {
	return &AccountHandler{ledger: ledger, txlog: txlog}
}

// ListAccounts returns the caller's accounts.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accounts, err := h.ledger.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// BalanceEnquiry returns the balance of an account by its public number.
func (h *AccountHandler) BalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	accountNumber := strings.TrimSpace(r.URL.Query().Get("accountNumber"))
	if accountNumber == "" {
		services.SendErrorResponse(w, "accountNumber is required", http.StatusBadRequest, nil)
		return
	}

	account, err := h.ledger.GetAccountByNumber(r.Context(), accountNumber)
	if err != nil {
		services.SendAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_number": account.AccountNumber,
		"type":           account.Type,
		"balance":        account.Balance,
	})
}

// ListTransactions returns the caller's most recent transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := h.txlog.ListByUser(r.Context(), actor.UserID, 20)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
