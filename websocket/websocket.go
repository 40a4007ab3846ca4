package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"freelance-hub/backend/metrics"
	"freelance-hub/backend/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// 觀察者只會送 control frame
	maxMessageSize = 512

	sendBuffer = 64
)

// Client 觀看某個會議出席狀態的 WebSocket 連線
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan models.MeetingEvent
	MeetingID string
}

// readPump 只處理 pong 與關閉；觀察者送來的資料一律丟棄
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("Presence watcher for meeting %s disconnected: %v", c.MeetingID, err)
			}
			return
		}
	}
}

// writePump 將 Hub 廣播的事件送給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 關閉了 channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshalling meeting event: %v", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub 依 meetingId 管理觀察者並廣播出席事件。所有 map 只在 Run 的 goroutine 中存取。
type Hub struct {
	watchers   map[string]map[*Client]bool
	broadcast  chan models.MeetingEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		watchers:   make(map[string]map[*Client]bool),
		broadcast:  make(chan models.MeetingEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish 實作 services.EventPublisher；Hub 忙碌時丟棄事件，不阻塞請求
func (h *Hub) Publish(event models.MeetingEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.WithField("meetingId", event.MeetingID).Warn("Presence hub is saturated, dropping event")
	}
}

// Run 啟動 Hub 的運行迴圈，ctx 結束時關閉所有連線
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			if _, ok := h.watchers[client.MeetingID]; !ok {
				h.watchers[client.MeetingID] = make(map[*Client]bool)
			}
			h.watchers[client.MeetingID][client] = true
			metrics.LiveConnections.Inc()
			log.Debugf("Watcher registered to meeting %s. Total watchers: %d", client.MeetingID, len(h.watchers[client.MeetingID]))

		case client := <-h.unregister:
			h.remove(client)

		case event := <-h.broadcast:
			for client := range h.watchers[event.MeetingID] {
				select {
				case client.send <- event:
				default:
					log.Printf("Watcher channel is full, dropping watcher of meeting %s", client.MeetingID)
					h.remove(client)
				}
			}

		case <-ctx.Done():
			for _, clients := range h.watchers {
				for client := range clients {
					h.remove(client)
				}
			}
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.watchers[client.MeetingID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.watchers, client.MeetingID)
	}
	close(client.send)
	metrics.LiveConnections.Dec()
}

// Snapshotter 提供連線當下的會議狀態 (MeetingService.GetDetails)
type Snapshotter interface {
	GetDetails(ctx context.Context, meetingID string) (*models.MeetingView, error)
}

// Handler GET /meetings/{meetingId}/live
type Handler struct {
	hub      *Hub
	meetings Snapshotter
	upgrader websocket.Upgrader
}

// NewHandler allowedOrigins 為空時允許所有來源
func NewHandler(hub *Hub, meetings Snapshotter, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:      hub,
		meetings: meetings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Handler) ServeMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["meetingId"]
	if meetingID == "" {
		http.Error(w, "Meeting ID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan models.MeetingEvent, sendBuffer),
		MeetingID: meetingID,
	}
	// 先放入快照再註冊，確保快照是第一則訊息
	client.send <- h.snapshot(r.Context(), meetingID)

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

func (h *Handler) snapshot(ctx context.Context, meetingID string) models.MeetingEvent {
	event := models.MeetingEvent{Type: models.EventPresenceSnapshot, MeetingID: meetingID, Timestamp: time.Now()}
	if h.meetings == nil {
		return event
	}
	view, err := h.meetings.GetDetails(ctx, meetingID)
	if err != nil || view == nil {
		return event
	}
	event.RoomID = view.RoomID
	if view.IsActive {
		event.PresentCount = view.PresentCount()
	}
	return event
}
