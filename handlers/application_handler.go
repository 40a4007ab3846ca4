package handlers

import (
	"context"
	"net/http"

	"freelance-hub/backend/models"

	"github.com/gorilla/mux"
)

// ApplicationService 團隊投標 (services.ApplicationService)
type ApplicationService interface {
	Submit(ctx context.Context, teamID, submitterID string, req models.SubmitApplicationRequest) (*models.Proposal, error)
	List(ctx context.Context, userID string) ([]models.Proposal, error)
	Withdraw(ctx context.Context, applicationID, requesterID string) error
}

type ApplicationHandler struct {
	applications ApplicationService
}

func NewApplicationHandler(applications ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Submit POST /teams/{teamId}/applications
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.SubmitApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	application, err := h.applications.Submit(r.Context(), mux.Vars(r)["teamId"], user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, application)
}

// List GET /team-applications
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	applications, err := h.applications.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applications)
}

// Withdraw DELETE /team-applications/{id}
func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.applications.Withdraw(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Application withdrawn successfully")
}
