package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityAction 參與者在會議中的動作
type ActivityAction string

const (
	ActionJoined ActivityAction = "joined"
	ActionLeft   ActivityAction = "left"
)

// Participant 一次入會紀錄；同一使用者重新加入時會新增一筆
type Participant struct {
	UserID    string     `bson:"userId" json:"userId"`
	UserRole  string     `bson:"userRole" json:"userRole"`
	JoinTime  time.Time  `bson:"joinTime" json:"joinTime"`
	LeaveTime *time.Time `bson:"leaveTime,omitempty" json:"leaveTime,omitempty"`
}

// Present 尚未離開
func (p Participant) Present() bool {
	return p.LeaveTime == nil
}

// Meeting 代表一個房間中的一次通話
type Meeting struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MeetingID    string             `bson:"meetingId" json:"meetingId"`
	RoomID       string             `bson:"roomId" json:"roomId"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`
	StartTime    time.Time          `bson:"startTime" json:"startTime"`
	EndTime      *time.Time         `bson:"endTime,omitempty" json:"endTime,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Participants []Participant      `bson:"participants" json:"participants"`
	Version      int64              `bson:"version" json:"-"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewMeeting 第一位參與者加入時建立會議
func NewMeeting(roomID, meetingID, userID, userRole string, at time.Time) *Meeting {
	return &Meeting{
		MeetingID: meetingID,
		RoomID:    roomID,
		StartTime: at,
		IsActive:  true,
		Participants: []Participant{
			{UserID: userID, UserRole: userRole, JoinTime: at},
		},
		UpdatedAt: at,
	}
}

// presentIndex 回傳使用者最近一筆未離開紀錄的索引，沒有則回傳 -1
func (m *Meeting) presentIndex(userID string) int {
	for i := len(m.Participants) - 1; i >= 0; i-- {
		p := m.Participants[i]
		if p.UserID == userID && p.Present() {
			return i
		}
	}
	return -1
}

// IsPresent 使用者目前是否在會議中
func (m *Meeting) IsPresent(userID string) bool {
	return m.presentIndex(userID) >= 0
}

// Join 記錄加入；使用者已在會議中時不做任何事並回傳 false
func (m *Meeting) Join(userID, userRole string, at time.Time) bool {
	if !m.IsActive || m.IsPresent(userID) {
		return false
	}
	m.Participants = append(m.Participants, Participant{UserID: userID, UserRole: userRole, JoinTime: at})
	m.UpdatedAt = at
	return true
}

// Leave 關閉使用者最近一筆未離開紀錄；全部人都離開時結束會議。
// 回傳是否有變更。
func (m *Meeting) Leave(userID string, at time.Time) bool {
	idx := m.presentIndex(userID)
	if idx < 0 {
		return false
	}
	leaveTime := at
	m.Participants[idx].LeaveTime = &leaveTime
	m.UpdatedAt = at

	if m.PresentCount() == 0 {
		endTime := at
		m.IsActive = false
		m.EndTime = &endTime
	}
	return true
}

// PresentCount 目前在會議中的紀錄數
func (m *Meeting) PresentCount() int {
	n := 0
	for _, p := range m.Participants {
		if p.Present() {
			n++
		}
	}
	return n
}

// Duration 已結束的會議為 endTime-startTime，進行中的會議算到 now
func (m *Meeting) Duration(now time.Time) time.Duration {
	end := now
	if m.EndTime != nil {
		end = *m.EndTime
	}
	if end.Before(m.StartTime) {
		return 0
	}
	return end.Sub(m.StartTime)
}

// ParticipantView 帶有停留時間的參與者
type ParticipantView struct {
	Participant
	DurationSeconds int64 `json:"durationSeconds"`
}

// MeetingView 回給前端的會議歷史項目
type MeetingView struct {
	Meeting
	Participants    []ParticipantView `json:"participants"`
	DurationSeconds int64             `json:"durationSeconds"`
}

// View 計算會議與每位參與者的停留時間
func (m *Meeting) View(now time.Time) MeetingView {
	participants := make([]ParticipantView, 0, len(m.Participants))
	for _, p := range m.Participants {
		end := now
		if p.LeaveTime != nil {
			end = *p.LeaveTime
		}
		var secs int64
		if end.After(p.JoinTime) {
			secs = int64(end.Sub(p.JoinTime).Seconds())
		}
		participants = append(participants, ParticipantView{Participant: p, DurationSeconds: secs})
	}
	return MeetingView{
		Meeting:         *m,
		Participants:    participants,
		DurationSeconds: int64(m.Duration(now).Seconds()),
	}
}
