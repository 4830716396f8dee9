package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kabarecoop/backend/internal/middleware"
	"github.com/kabarecoop/backend/internal/services"
	"github.com/shopspring/decimal"
)

// CreditHandler exposes the credit request workflow: member submission,
// commission decisions, agent decisions.
type CreditHandler struct {
	workflow  *services.CreditWorkflowService
	validator *services.ValidationHelper
}

func NewCreditHandler(workflow *services.CreditWorkflowService) *CreditHandler {
	return &CreditHandler{
		workflow:  workflow,
		validator: services.NewValidationHelper(),
	}
}

type submitRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Purpose  string          `json:"purpose" validate:"required,max=200"`
	Duration *int            `json:"duration,omitempty" validate:"omitempty,min=1,max=120"`
}

// Submit files a new credit request for the calling member.
func (h *CreditHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	created, err := h.workflow.Submit(r.Context(), actor, req.Amount, req.Purpose, req.Duration)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListMine returns the caller's credit requests.
func (h *CreditHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requests, err := h.workflow.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// CommissionQueue lists requests awaiting a commission decision.
func (h *CreditHandler) CommissionQueue(w http.ResponseWriter, r *http.Request) {
	requests, err := h.workflow.ListForCommission(r.Context())
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// AgentQueue lists commission-approved requests plus past agent decisions.
func (h *CreditHandler) AgentQueue(w http.ResponseWriter, r *http.Request) {
	requests, err := h.workflow.ListForAgent(r.Context())
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

type decisionRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject validate"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// Decide applies a commission or agent decision on a request. The workflow's
// transition table enforces which role may take which decision from which
// status.
func (h *CreditHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requestID := chi.URLParam(r, "id")

	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	updated, err := h.workflow.Decide(r.Context(), actor, requestID, services.Decision(req.Decision), req.Note)
	if err != nil {
		services.SendAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
