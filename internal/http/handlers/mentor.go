package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/acadhub/leave-be/internal/http/respond"
	"github.com/acadhub/leave-be/internal/leave"
	"github.com/acadhub/leave-be/internal/models/dto"
)

// MentorHandler owns the mentor-assignment admin endpoint. It is guarded
// by a shared admin token checked against a bcrypt hash from config, not
// by the identity middleware.
type MentorHandler struct {
	svc            *leave.Service
	adminTokenHash string
}

// NewMentorHandler constructs the handler. An empty hash disables the
// endpoint entirely.
func NewMentorHandler(svc *leave.Service, adminTokenHash string) *MentorHandler {
	return &MentorHandler{svc: svc, adminTokenHash: adminTokenHash}
}

// Register attaches admin routes to the mux.
func (h *MentorHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/mentors", h.handleAssign)
}

func (h *MentorHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respond.Error(w, http.StatusForbidden, "admin token required")
		return
	}

	var req dto.AssignMentorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.StudentEmail) == "" || strings.TrimSpace(req.MentorEmail) == "" {
		respond.Error(w, http.StatusBadRequest, "student_email and mentor_email are required")
		return
	}

	if err := h.svc.AssignMentor(r.Context(), req.StudentEmail, req.MentorEmail); err != nil {
		writeLeaveError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "mentor assigned", nil)
}

func (h *MentorHandler) authorized(r *http.Request) bool {
	if h.adminTokenHash == "" {
		return false
	}
	token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.adminTokenHash), []byte(token)) == nil
}
