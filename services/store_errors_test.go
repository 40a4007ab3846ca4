package services

import (
	"context"
	"errors"
	"testing"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/database"
	"freelance-hub/backend/models"
	"freelance-hub/backend/services/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

var errStoreDown = errors.New("connection reset by peer")

func TestRecordActivityStoreFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	events := mocks.NewMockEventPublisher(ctrl)
	svc := NewMeetingService(store, events)

	store.EXPECT().FindActive(gomock.Any(), "m1").Return(nil, errStoreDown)
	events.EXPECT().Publish(gomock.Any()).Times(0)

	err := svc.RecordActivity(context.Background(), activity("u1", "client", models.ActionJoined, t0))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, "Internal server error", apperror.PublicMessage(err))
}

// 版本衝突持續發生時，重試次數用完後回傳 Conflict
func TestRecordActivityGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	svc := NewMeetingService(store, nil)

	store.EXPECT().FindActive(gomock.Any(), "m1").DoAndReturn(func(context.Context, string) (*models.Meeting, error) {
		return models.NewMeeting("r1", "m1", "host", "client", t0), nil
	}).Times(maxWriteAttempts)
	store.EXPECT().Replace(gomock.Any(), gomock.Any()).Return(database.ErrVersionConflict).Times(maxWriteAttempts)

	err := svc.RecordActivity(context.Background(), activity("u1", "client", models.ActionJoined, t0))
	assertKind(t, err, apperror.KindConflict)
}

// 兩個第一位加入者同時建立會議：輸的一方重試後加入已存在的會議
func TestRecordActivityJoinsMeetingCreatedConcurrently(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	events := mocks.NewMockEventPublisher(ctrl)
	svc := NewMeetingService(store, events)

	existing := models.NewMeeting("r1", "m1", "u2", "freelancer", t0)
	existing.ID = primitive.NewObjectID()
	existing.Version = 1

	gomock.InOrder(
		store.EXPECT().FindActive(gomock.Any(), "m1").Return(nil, nil),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(database.ErrDuplicate),
		store.EXPECT().FindActive(gomock.Any(), "m1").Return(existing, nil),
		store.EXPECT().Replace(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *models.Meeting) error {
			assert.Equal(t, 2, m.PresentCount())
			return nil
		}),
	)
	events.EXPECT().Publish(gomock.Any()).Do(func(e models.MeetingEvent) {
		assert.Equal(t, models.EventParticipantJoined, e.Type)
		assert.Equal(t, 2, e.PresentCount)
	})

	require.NoError(t, svc.RecordActivity(context.Background(), activity("u1", "client", models.ActionJoined, t0)))
}

func TestTeamMutationStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	teams := mocks.NewMockTeamStore(ctrl)
	proposals := mocks.NewMockProposalStore(ctrl)
	svc := NewTeamService(teams, proposals)

	team := models.NewTeam("Alpha", "", "f1", t0)
	team.ID = primitive.NewObjectID()
	teams.EXPECT().FindByID(gomock.Any(), team.ID).Return(team, nil)
	teams.EXPECT().Replace(gomock.Any(), gomock.Any()).Return(errStoreDown)

	_, err := svc.InviteMember(context.Background(), team.ID.Hex(), "f1", "f2")
	assertKind(t, err, apperror.KindInternal)
}

// 團隊已刪除但清除投標失敗：仍回報成功
func TestDeleteTeamCascadeFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	teams := mocks.NewMockTeamStore(ctrl)
	proposals := mocks.NewMockProposalStore(ctrl)
	svc := NewTeamService(teams, proposals)

	team := models.NewTeam("Alpha", "", "f1", t0)
	team.ID = primitive.NewObjectID()
	team.Version = 3
	teams.EXPECT().FindByID(gomock.Any(), team.ID).Return(team, nil)
	teams.EXPECT().Delete(gomock.Any(), team.ID, int64(3)).Return(nil)
	proposals.EXPECT().DeletePendingByTeam(gomock.Any(), team.ID).Return(int64(0), errStoreDown)

	require.NoError(t, svc.DeleteTeam(context.Background(), team.ID.Hex(), "f1"))
}

// 讀取之後投標被決定，刪除條件不成立
func TestWithdrawLosesRaceWithDecision(t *testing.T) {
	ctrl := gomock.NewController(t)
	teams := mocks.NewMockTeamStore(ctrl)
	proposals := mocks.NewMockProposalStore(ctrl)
	svc := NewApplicationService(teams, proposals)

	team := models.NewTeam("Alpha", "", "f1", t0)
	team.ID = primitive.NewObjectID()
	app := models.NewTeamProposal(team.ID, "f1", "j1", "x", t0)
	app.ID = primitive.NewObjectID()

	proposals.EXPECT().FindByID(gomock.Any(), app.ID).Return(app, nil)
	teams.EXPECT().FindByID(gomock.Any(), team.ID).Return(team, nil)
	proposals.EXPECT().DeletePending(gomock.Any(), app.ID).Return(false, nil)

	assertKind(t, svc.Withdraw(context.Background(), app.ID.Hex(), "f1"), apperror.KindConflict)
}

func TestListApplicationsStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	teams := mocks.NewMockTeamStore(ctrl)
	proposals := mocks.NewMockProposalStore(ctrl)
	svc := NewApplicationService(teams, proposals)

	team := models.NewTeam("Alpha", "", "f1", t0)
	team.ID = primitive.NewObjectID()
	teams.EXPECT().FindByMember(gomock.Any(), "f1").Return([]models.Team{*team}, nil)
	proposals.EXPECT().FindByTeams(gomock.Any(), []primitive.ObjectID{team.ID}).Return(nil, errStoreDown)

	_, err := svc.List(context.Background(), "f1")
	assertKind(t, err, apperror.KindInternal)
}
