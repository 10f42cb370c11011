package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/acadhub/leave-be/internal/http/respond"
	"github.com/acadhub/leave-be/internal/leave"
	"github.com/acadhub/leave-be/internal/middleware"
	"github.com/acadhub/leave-be/internal/models/dto"
)

const dateLayout = "2006-01-02"

// LeaveHandler owns the leave submission, decision, and listing endpoints.
// Every route expects the identity middleware to have placed the caller in
// the request context.
type LeaveHandler struct {
	svc *leave.Service
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc *leave.Service) *LeaveHandler {
	return &LeaveHandler{svc: svc}
}

// Register attaches leave routes to the mux.
func (h *LeaveHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/leave", h.handleSubmit)
	mux.HandleFunc("GET /api/leave", h.handleListOwn)
	mux.HandleFunc("GET /api/leave/pending", h.handleListPending)
	mux.HandleFunc("POST /api/leave/{id}/approve", h.handleApprove)
	mux.HandleFunc("POST /api/leave/{id}/reject", h.handleReject)
	mux.HandleFunc("GET /api/balance", h.handleBalance)
}

func (h *LeaveHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req dto.SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	result, err := h.svc.Submit(r.Context(), user.Email, req.LeaveType, start, end, req.Reason)
	if err != nil {
		writeLeaveError(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, "leave request recorded", dto.SubmitLeaveResponse{
		RequestID:  result.RequestID,
		Status:     result.Status,
		NewBalance: result.NewBalance,
	})
}

func (h *LeaveHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	requests, err := h.svc.RequestsFor(r.Context(), user.Email)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "success", requests)
}

func (h *LeaveHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	requests, err := h.svc.PendingForApprover(r.Context(), user.Email)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "success", requests)
}

func (h *LeaveHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.svc.Approve)
}

func (h *LeaveHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.svc.Reject)
}

func (h *LeaveHandler) handleDecision(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, requestID, approverEmail string) error) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	requestID := r.PathValue("id")
	if requestID == "" {
		respond.Error(w, http.StatusBadRequest, "missing request id")
		return
	}

	if err := decide(r.Context(), requestID, user.Email); err != nil {
		writeLeaveError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "success", nil)
}

func (h *LeaveHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	balance, err := h.svc.Balance(r.Context(), user.Email)
	if err != nil {
		writeLeaveError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "success", dto.BalanceResponse{
		Email:        user.Email,
		LeaveBalance: balance,
	})
}

// writeLeaveError maps the service error taxonomy onto HTTP statuses.
func writeLeaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrInvalidDateRange), errors.Is(err, leave.ErrInvalidLeaveType):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, leave.ErrInsufficientBalance), errors.Is(err, leave.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, leave.ErrNoApproverAvailable):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, leave.ErrUnauthorized):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, leave.ErrUserNotFound), errors.Is(err, leave.ErrRequestNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, leave.ErrStoreUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, leave.ErrStoreUnavailable.Error())
	default:
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
