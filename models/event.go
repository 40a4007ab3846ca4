package models

import "time"

// EventType 即時推送給會議觀察者的事件類型
type EventType string

const (
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventMeetingEnded      EventType = "meeting_ended"

	// EventPresenceSnapshot 連線建立時送出的目前狀態
	EventPresenceSnapshot EventType = "presence_snapshot"
)

// MeetingEvent 會議出席變化，透過 websocket 廣播
type MeetingEvent struct {
	Type         EventType `json:"type"`
	MeetingID    string    `json:"meetingId"`
	RoomID       string    `json:"roomId"`
	UserID       string    `json:"userId,omitempty"`
	UserRole     string    `json:"userRole,omitempty"`
	PresentCount int       `json:"presentCount"`
	Timestamp    time.Time `json:"timestamp"`
}
