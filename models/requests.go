package models

import "time"

// ActivityRequest POST /meetings 的請求體
type ActivityRequest struct {
	RoomID    string         `json:"roomId" validate:"required"`
	MeetingID string         `json:"meetingId" validate:"required"`
	UserID    string         `json:"userId" validate:"required"`
	UserRole  string         `json:"userRole" validate:"required"`
	Action    ActivityAction `json:"action" validate:"required,oneof=joined left"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateTeamRequest 只更新有提供的欄位
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type UpdateRoleRequest struct {
	Role TeamRole `json:"role" validate:"required,oneof=admin member"`
}

type SubmitApplicationRequest struct {
	JobID       string `json:"jobId" validate:"required"`
	Description string `json:"description" validate:"required,max=5000"`
}

// JoinTokenResponse 視訊房間供應商簽發的入場 token
type JoinTokenResponse struct {
	Token     string    `json:"token"`
	RoomID    string    `json:"roomId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
