package gateway

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/gorilla/websocket"
)

// Topic identifies a VMS event stream a client can subscribe to,
// trimmed from the teacher's broader EventTopic set
// (internal/websocket/events.go) to this repo's domain.
type Topic string

const (
	TopicCameraStateChanged Topic = "camera.state_changed"
	TopicRetentionRun       Topic = "retention.run_complete"
	TopicIngestError        Topic = "ingest.error"
	TopicLiveError          Topic = "live.error"
)

// Event is one message pushed to subscribed clients.
type Event struct {
	Topic     Topic                  `json:"topic"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

type subscriber struct {
	conn   *websocket.Conn
	mu     sync.Mutex // guards WriteJSON; gorilla/websocket conns aren't safe for concurrent writers
	topics map[Topic]bool
}

// Hub tracks connected WebSocket subscribers and fans events out by
// topic, the way the teacher's EventManager fans out by topic instead
// of broadcasting to every client.
type Hub struct {
	logger       *logging.Logger
	upgrader     websocket.Upgrader
	mu           sync.RWMutex
	subscribers  map[int64]*subscriber
	nextClientID atomic.Int64
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[int64]*subscriber),
	}
}

// ServeWS upgrades the connection and registers a subscriber for the
// requested topics. It blocks reading control/close frames until the
// client disconnects, then deregisters.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topics []Topic) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	topicSet := make(map[Topic]bool, len(topics))
	for _, t := range topics {
		topicSet[t] = true
	}

	id := h.nextClientID.Add(1)
	sub := &subscriber{conn: conn, topics: topicSet}

	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Publish fans an event out to every subscriber registered for its
// topic.
func (h *Hub) Publish(topic Topic, data map[string]interface{}) {
	evt := Event{Topic: topic, Data: data, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		if sub.topics[topic] {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub.mu.Lock()
		if err := sub.conn.WriteJSON(evt); err != nil {
			h.logger.WithFields(logging.Fields{"topic": topic, "error": err.Error()}).Warn("failed to push event to subscriber")
		}
		sub.mu.Unlock()
	}
}

// SubscriberCount reports the number of currently connected clients,
// used in tests and storageStats-adjacent diagnostics.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
