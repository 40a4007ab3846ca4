package database

import (
	"context"
	"testing"
	"time"

	"freelance-hub/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMeetingRepositoryActiveUniqueness(t *testing.T) {
	repo := NewMeetingRepository(newTestDB(t))
	ctx := context.Background()

	first := models.NewMeeting("r1", "m1", "u1", "client", base)
	require.NoError(t, repo.Insert(ctx, first))
	assert.False(t, first.ID.IsZero())
	assert.Equal(t, int64(1), first.Version)

	second := models.NewMeeting("r1", "m1", "u2", "client", base)
	assert.ErrorIs(t, repo.Insert(ctx, second), ErrDuplicate)

	// 會議結束後可以用同一個 meetingId 開新的會議
	first.Leave("u1", base.Add(time.Minute))
	require.NoError(t, repo.Replace(ctx, first))
	require.NoError(t, repo.Insert(ctx, models.NewMeeting("r1", "m1", "u2", "client", base.Add(time.Hour))))
}

func TestMeetingRepositoryReplaceDetectsStaleVersion(t *testing.T) {
	repo := NewMeetingRepository(newTestDB(t))
	ctx := context.Background()

	m := models.NewMeeting("r1", "m1", "u1", "client", base)
	require.NoError(t, repo.Insert(ctx, m))

	stale, err := repo.FindActive(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, stale)

	m.Join("u2", "freelancer", base.Add(time.Second))
	require.NoError(t, repo.Replace(ctx, m))
	assert.Equal(t, int64(2), m.Version)

	stale.Join("u3", "freelancer", base.Add(time.Second))
	assert.ErrorIs(t, repo.Replace(ctx, stale), ErrVersionConflict)

	current, err := repo.FindActive(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, current.Participants, 2)
}

func TestMeetingRepositoryHistoryAndLatest(t *testing.T) {
	repo := NewMeetingRepository(newTestDB(t))
	ctx := context.Background()

	older := models.NewMeeting("r1", "m1", "u1", "client", base)
	older.Leave("u1", base.Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, older))

	newer := models.NewMeeting("r1", "m1", "u1", "client", base.Add(time.Hour))
	newer.Leave("u1", base.Add(2*time.Hour))
	require.NoError(t, repo.Insert(ctx, newer))

	other := models.NewMeeting("r2", "m2", "u2", "client", base.Add(3*time.Hour))
	require.NoError(t, repo.Insert(ctx, other))

	history, err := repo.FindByParticipant(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].ID)
	assert.Equal(t, older.ID, history[1].ID)

	latest, err := repo.FindLatest(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	missing, err := repo.FindLatest(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMeetingRepositorySetTitle(t *testing.T) {
	repo := NewMeetingRepository(newTestDB(t))
	ctx := context.Background()

	m := models.NewMeeting("r1", "m1", "u1", "client", base)
	require.NoError(t, repo.Insert(ctx, m))

	updated, err := repo.SetTitle(ctx, m.ID, "Kickoff", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", updated.Title)
	assert.Equal(t, int64(2), updated.Version)

	missing, err := repo.SetTitle(ctx, primitive.NewObjectID(), "x", base)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
