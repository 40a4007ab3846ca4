package handlers

import (
	"context"
	"net/http"

	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	"github.com/gorilla/mux"
)

// MeetingService 會議紀錄相關操作 (services.MeetingService)
type MeetingService interface {
	RecordActivity(ctx context.Context, req models.ActivityRequest) error
	GetHistory(ctx context.Context, userID string) ([]models.MeetingView, error)
	GetDetails(ctx context.Context, meetingID string) (*models.MeetingView, error)
	UpdateTitle(ctx context.Context, meetingID string, req models.UpdateTitleRequest) (*models.Meeting, error)
}

// RoomTokenIssuer 視訊房間供應商 (roomprovider.Client)
type RoomTokenIssuer interface {
	IssueJoinToken(ctx context.Context, roomID string, identity models.Identity) (*models.JoinTokenResponse, error)
}

type MeetingHandler struct {
	meetings MeetingService
	rooms    RoomTokenIssuer
}

// NewMeetingHandler rooms 可以是 nil，此時不提供入場 token
func NewMeetingHandler(meetings MeetingService, rooms RoomTokenIssuer) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, rooms: rooms}
}

// RecordActivity POST /meetings
func (h *MeetingHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var req models.ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.meetings.RecordActivity(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetHistory GET /meetings?userId=
func (h *MeetingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.meetings.GetHistory(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// GetDetails GET /meetings/{meetingId}
func (h *MeetingHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	meeting, err := h.meetings.GetDetails(r.Context(), mux.Vars(r)["meetingId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// UpdateTitle PATCH /meetings/{meetingId}/title
func (h *MeetingHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	meeting, err := h.meetings.UpdateTitle(r.Context(), mux.Vars(r)["meetingId"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// IssueRoomToken POST /meetings/rooms/{roomId}/token
func (h *MeetingHandler) IssueRoomToken(w http.ResponseWriter, r *http.Request) {
	if h.rooms == nil {
		sendJSONError(w, "Room provider is not configured", http.StatusServiceUnavailable)
		return
	}
	identity, err := utils.GetIdentityFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.rooms.IssueJoinToken(r.Context(), mux.Vars(r)["roomId"], identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}
