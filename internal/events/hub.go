package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"coopledger/internal/handlers/business"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	subscriberSize = 64 // buffered events per subscriber before it is dropped
)

// Subscriber is one websocket connection following the ledger event feed
type Subscriber struct {
	ID      uint64
	Conn    *websocket.Conn
	SendCh  chan []byte
	StopCh  chan struct{}
	stopped sync.Once
}

func (s *Subscriber) stop() {
	s.stopped.Do(func() { close(s.StopCh) })
}

// Hub fans ledger events out to websocket subscribers. It implements
// business.EventPublisher; a slow subscriber is disconnected rather than
// allowed to block the ledger.
type Hub struct {
	subscribers sync.Map // map[uint64]*Subscriber
	nextID      atomic.Uint64
	upgrader    websocket.Upgrader
}

// NewHub creates an empty hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Publish encodes evt once and queues it for every subscriber
func (h *Hub) Publish(evt business.LedgerEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.WithFields(log.Fields{
			"event_id": evt.ID,
			"type":     evt.Type,
		}).Errorf("Failed to encode ledger event: %v", err)
		return
	}

	h.subscribers.Range(func(_, value interface{}) bool {
		sub := value.(*Subscriber)
		select {
		case sub.SendCh <- payload:
		default:
			log.WithFields(log.Fields{
				"subscriber_id": sub.ID,
			}).Warn("Event subscriber is too slow, disconnecting")
			h.remove(sub)
		}
		return true
	})
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	n := 0
	h.subscribers.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// ServeWS upgrades the request and streams events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
		}).Warnf("Websocket upgrade failed: %v", err)
		return
	}

	sub := &Subscriber{
		ID:     h.nextID.Add(1),
		Conn:   conn,
		SendCh: make(chan []byte, subscriberSize),
		StopCh: make(chan struct{}),
	}
	h.subscribers.Store(sub.ID, sub)
	log.WithFields(log.Fields{
		"subscriber_id": sub.ID,
		"remote":        r.RemoteAddr,
	}).Info("Event subscriber connected")

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.subscribers.Range(func(_, value interface{}) bool {
		h.remove(value.(*Subscriber))
		return true
	})
}

func (h *Hub) remove(sub *Subscriber) {
	if _, loaded := h.subscribers.LoadAndDelete(sub.ID); loaded {
		log.WithFields(log.Fields{
			"subscriber_id": sub.ID,
		}).Info("Event subscriber disconnected")
	}
	sub.stop()
}

// readLoop only services control frames; clients never send data
func (h *Hub) readLoop(sub *Subscriber) {
	defer func() {
		h.remove(sub)
		sub.Conn.Close()
	}()

	sub.Conn.SetReadLimit(512)
	sub.Conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.Conn.SetPongHandler(func(string) error {
		return sub.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithFields(log.Fields{
					"subscriber_id": sub.ID,
				}).Warnf("Event subscriber read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Conn.Close()
	}()

	for {
		select {
		case <-sub.StopCh:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			sub.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-sub.SendCh:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}
