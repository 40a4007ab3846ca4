package handlers

import (
	"context"
	"net/http"

	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	"github.com/gorilla/mux"
)

// TeamService 團隊與成員管理 (services.TeamService)
type TeamService interface {
	CreateTeam(ctx context.Context, creatorID string, req models.CreateTeamRequest) (*models.Team, error)
	ListTeams(ctx context.Context, userID string) ([]models.Team, error)
	GetTeam(ctx context.Context, teamID, userID string) (*models.Team, error)
	UpdateTeam(ctx context.Context, teamID, userID string, req models.UpdateTeamRequest) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID, userID string) error
	InviteMember(ctx context.Context, teamID, inviterID, inviteeID string) (*models.Team, error)
	AcceptInvitation(ctx context.Context, teamID, userID string) (*models.Team, error)
	RejectInvitation(ctx context.Context, teamID, userID string) error
	RevokeInvitation(ctx context.Context, teamID, adminID, inviteeID string) (*models.Team, error)
	ListInvitations(ctx context.Context, userID string) ([]models.TeamInvitationView, error)
	RemoveMember(ctx context.Context, teamID, requesterID, targetID string) (*models.Team, error)
	LeaveTeam(ctx context.Context, teamID, userID string) error
	UpdateMemberRole(ctx context.Context, teamID, requesterID, targetID string, req models.UpdateRoleRequest) (*models.Team, error)
}

type TeamHandler struct {
	teams TeamService
}

func NewTeamHandler(teams TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// identity 取得 JWTMiddleware 放入的使用者；失敗時已寫入回應
func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, err := utils.GetIdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return models.Identity{}, false
	}
	return id, true
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.CreateTeam(r.Context(), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	teams, err := h.teams.ListTeams(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	invitations, err := h.teams.ListInvitations(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	team, err := h.teams.GetTeam(r.Context(), mux.Vars(r)["teamId"], user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.UpdateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.UpdateTeam(r.Context(), mux.Vars(r)["teamId"], user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.teams.DeleteTeam(r.Context(), mux.Vars(r)["teamId"], user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Team deleted successfully")
}

func (h *TeamHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	team, err := h.teams.InviteMember(r.Context(), vars["teamId"], user.ID, vars["freelancerId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	team, err := h.teams.RevokeInvitation(r.Context(), vars["teamId"], user.ID, vars["freelancerId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	team, err := h.teams.AcceptInvitation(r.Context(), mux.Vars(r)["teamId"], user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.teams.RejectInvitation(r.Context(), mux.Vars(r)["teamId"], user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Invitation rejected")
}

func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.teams.LeaveTeam(r.Context(), mux.Vars(r)["teamId"], user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Left team successfully")
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	team, err := h.teams.RemoveMember(r.Context(), vars["teamId"], user.ID, vars["memberId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	team, err := h.teams.UpdateMemberRole(r.Context(), vars["teamId"], user.ID, vars["memberId"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
