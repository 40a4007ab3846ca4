package services

import (
	"context"
	"errors"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/database"
	"freelance-hub/backend/metrics"
	"freelance-hub/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:generate mockgen -source=stores.go -destination=mocks/mock_stores.go -package=mocks

// MeetingStore 會議的持久層；Replace 以 version 做 compare-and-swap
type MeetingStore interface {
	FindActive(ctx context.Context, meetingID string) (*models.Meeting, error)
	Insert(ctx context.Context, meeting *models.Meeting) error
	Replace(ctx context.Context, meeting *models.Meeting) error
	FindByParticipant(ctx context.Context, userID string) ([]models.Meeting, error)
	FindLatest(ctx context.Context, meetingID string) (*models.Meeting, error)
	SetTitle(ctx context.Context, id primitive.ObjectID, title string, at time.Time) (*models.Meeting, error)
}

type TeamStore interface {
	Insert(ctx context.Context, team *models.Team) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error)
	FindByMember(ctx context.Context, userID string) ([]models.Team, error)
	FindByInvitee(ctx context.Context, userID string) ([]models.Team, error)
	Replace(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id primitive.ObjectID, version int64) error
}

type ProposalStore interface {
	Insert(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Proposal, error)
	FindByTeams(ctx context.Context, teamIDs []primitive.ObjectID) ([]models.Proposal, error)
	DeletePending(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeletePendingByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error)
}

// EventPublisher 接收會議出席變化 (例如 websocket hub)
type EventPublisher interface {
	Publish(event models.MeetingEvent)
}

const maxWriteAttempts = 5

func isWriteConflict(err error) bool {
	return errors.Is(err, database.ErrVersionConflict) || errors.Is(err, database.ErrDuplicate)
}

// retryOnConflict 重新執行 read-modify-write，直到寫入成功或次數用完
func retryOnConflict(ctx context.Context, collection string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if !isWriteConflict(err) {
			return err
		}
		metrics.WriteConflicts.WithLabelValues(collection).Inc()
		if attempt == maxWriteAttempts {
			return apperror.Conflict("the resource was modified concurrently, please retry")
		}
		if ctx.Err() != nil {
			return apperror.Internal(ctx.Err(), "request cancelled")
		}
	}
}

// storeErr 保留並行衝突讓 retryOnConflict 處理，其他錯誤包裝成 internal
func storeErr(err error, message string) error {
	if isWriteConflict(err) {
		return err
	}
	return apperror.Internal(err, message)
}
