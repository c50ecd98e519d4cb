package stream

import (
	"net/http"
	"sync"
	"time"

	"errortrail/src/model"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	subscriberSize = 32
)

// Hub fans newly captured records out to websocket subscribers.
// Publish never blocks: a subscriber that falls behind loses messages.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan model.ErrorRecordResponse]struct{}
	upgrader    websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subscribers: map[chan model.ErrorRecordResponse]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish delivers rec to every current subscriber.
func (h *Hub) Publish(rec model.ErrorRecordResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- rec:
		default:
			logger.WithField("error_id", rec.ID).Debug("[stream] subscriber too slow, dropping record")
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) subscribe() chan model.ErrorRecordResponse {
	ch := make(chan model.ErrorRecordResponse, subscriberSize)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan model.ErrorRecordResponse) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams records as JSON text frames
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("[stream] websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// The client never sends anything useful; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case rec := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(rec); err != nil {
				logger.WithError(err).Debug("[stream] write failed, dropping subscriber")
				return
			}
		}
	}
}
