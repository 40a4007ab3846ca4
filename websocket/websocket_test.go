package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeMeetings map[string]*models.Meeting

func (f fakeMeetings) GetDetails(_ context.Context, meetingID string) (*models.MeetingView, error) {
	m, ok := f[meetingID]
	if !ok {
		return nil, apperror.NotFound("meeting not found")
	}
	view := m.View(t0.Add(time.Hour))
	return &view, nil
}

func startServer(t *testing.T, meetings Snapshotter) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/meetings/{meetingId}/live", NewHandler(hub, meetings, nil).ServeMeeting)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.MeetingEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event models.MeetingEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWatcherReceivesSnapshotThenEvents(t *testing.T) {
	meeting := models.NewMeeting("r1", "m1", "u1", "client", t0)
	meeting.Join("u2", "freelancer", t0.Add(time.Minute))
	hub, base := startServer(t, fakeMeetings{"m1": meeting})

	conn := dial(t, base+"/meetings/m1/live")
	snapshot := readEvent(t, conn)
	assert.Equal(t, models.EventPresenceSnapshot, snapshot.Type)
	assert.Equal(t, "r1", snapshot.RoomID)
	assert.Equal(t, 2, snapshot.PresentCount)

	hub.Publish(models.MeetingEvent{Type: models.EventParticipantJoined, MeetingID: "other", UserID: "x"})
	hub.Publish(models.MeetingEvent{Type: models.EventParticipantLeft, MeetingID: "m1", UserID: "u2", PresentCount: 1})

	event := readEvent(t, conn)
	assert.Equal(t, models.EventParticipantLeft, event.Type)
	assert.Equal(t, "u2", event.UserID)
	assert.Equal(t, 1, event.PresentCount)
}

func TestSnapshotForUnknownMeeting(t *testing.T) {
	_, base := startServer(t, fakeMeetings{})

	conn := dial(t, base+"/meetings/nope/live")
	snapshot := readEvent(t, conn)
	assert.Equal(t, models.EventPresenceSnapshot, snapshot.Type)
	assert.Equal(t, "nope", snapshot.MeetingID)
	assert.Zero(t, snapshot.PresentCount)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.Publish(models.MeetingEvent{MeetingID: "m1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(), nil, []string{"http://localhost:3000"})

	req := httptest.NewRequest("GET", "/meetings/m1/live", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, h.upgrader.CheckOrigin(req))
}
