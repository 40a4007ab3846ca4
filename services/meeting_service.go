package services

import (
	"context"
	"strings"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/metrics"
	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	log "github.com/sirupsen/logrus"
)

// MeetingService 記錄視訊會議的加入/離開並提供歷史查詢。
// 重複或亂序的訊號會被忽略，不會破壞歷史紀錄。
type MeetingService struct {
	store  MeetingStore
	events EventPublisher
	now    func() time.Time
}

func NewMeetingService(store MeetingStore, events EventPublisher) *MeetingService {
	return &MeetingService{store: store, events: events, now: time.Now}
}

// RecordActivity 處理一次 joined/left 訊號
func (s *MeetingService) RecordActivity(ctx context.Context, req models.ActivityRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	at := s.now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		at = *req.Timestamp
	}

	var event *models.MeetingEvent
	err := retryOnConflict(ctx, "meetings", func() error {
		event = nil
		meeting, err := s.store.FindActive(ctx, req.MeetingID)
		if err != nil {
			return apperror.Internal(err, "failed to load meeting")
		}

		switch req.Action {
		case models.ActionJoined:
			if meeting == nil {
				meeting = models.NewMeeting(req.RoomID, req.MeetingID, req.UserID, req.UserRole, at)
				if err := s.store.Insert(ctx, meeting); err != nil {
					return storeErr(err, "failed to create meeting")
				}
			} else {
				if !meeting.Join(req.UserID, req.UserRole, at) {
					return nil
				}
				if err := s.store.Replace(ctx, meeting); err != nil {
					return storeErr(err, "failed to update meeting")
				}
			}
			event = newEvent(models.EventParticipantJoined, meeting, req, at)

		case models.ActionLeft:
			if meeting == nil {
				return apperror.NotFound("no active meeting found for meetingId %s", req.MeetingID)
			}
			if !meeting.Leave(req.UserID, at) {
				return nil
			}
			if err := s.store.Replace(ctx, meeting); err != nil {
				return storeErr(err, "failed to update meeting")
			}
			if meeting.IsActive {
				event = newEvent(models.EventParticipantLeft, meeting, req, at)
			} else {
				event = newEvent(models.EventMeetingEnded, meeting, req, at)
			}

		default:
			return apperror.Validation("action must be one of: joined, left")
		}
		return nil
	})

	metrics.MeetingActivity.WithLabelValues(string(req.Action), metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	if event == nil {
		log.WithFields(log.Fields{
			"meetingId": req.MeetingID,
			"userId":    req.UserID,
			"action":    req.Action,
		}).Debug("Ignored duplicate meeting signal")
		return nil
	}
	if event.Type == models.EventMeetingEnded {
		metrics.ActiveMeetingsEnded.Inc()
	}
	if s.events != nil {
		s.events.Publish(*event)
	}
	return nil
}

func newEvent(eventType models.EventType, meeting *models.Meeting, req models.ActivityRequest, at time.Time) *models.MeetingEvent {
	return &models.MeetingEvent{
		Type:         eventType,
		MeetingID:    meeting.MeetingID,
		RoomID:       meeting.RoomID,
		UserID:       req.UserID,
		UserRole:     req.UserRole,
		PresentCount: meeting.PresentCount(),
		Timestamp:    at,
	}
}

// GetHistory 使用者參與過的會議 (進行中與已結束)，依 startTime 由新到舊
func (s *MeetingService) GetHistory(ctx context.Context, userID string) ([]models.MeetingView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Validation("userId is required")
	}
	meetings, err := s.store.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load meeting history")
	}

	now := s.now()
	views := make([]models.MeetingView, 0, len(meetings))
	for i := range meetings {
		views = append(views, meetings[i].View(now))
	}
	return views, nil
}

// GetDetails 同一 meetingId 有多筆紀錄時，優先回傳進行中的，否則回傳最近開始的一筆
func (s *MeetingService) GetDetails(ctx context.Context, meetingID string) (*models.MeetingView, error) {
	meeting, err := s.findLatest(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	view := meeting.View(s.now())
	return &view, nil
}

// UpdateTitle 設定會議標題，選擇紀錄的規則與 GetDetails 相同
func (s *MeetingService) UpdateTitle(ctx context.Context, meetingID string, req models.UpdateTitleRequest) (*models.Meeting, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	meeting, err := s.findLatest(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.SetTitle(ctx, meeting.ID, req.Title, s.now())
	if err != nil {
		return nil, apperror.Internal(err, "failed to update meeting title")
	}
	if updated == nil {
		return nil, apperror.NotFound("meeting not found")
	}
	return updated, nil
}

func (s *MeetingService) findLatest(ctx context.Context, meetingID string) (*models.Meeting, error) {
	if strings.TrimSpace(meetingID) == "" {
		return nil, apperror.Validation("meetingId is required")
	}
	meeting, err := s.store.FindLatest(ctx, meetingID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load meeting")
	}
	if meeting == nil {
		return nil, apperror.NotFound("meeting not found")
	}
	return meeting, nil
}
