package notifier

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"AstroSwap/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendQueueSize  = 64
	maxMessageSize = 4096
)

var (
	errObserverClosed = errors.New("observer closed")
	errQueueFull      = errors.New("send queue full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSObserver pushes events to one WebSocket client through a buffered queue.
type WSObserver struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

func newWSObserver(conn *websocket.Conn) *WSObserver {
	return &WSObserver{
		id:   "ws-" + uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (o *WSObserver) ID() string { return o.id }

// Deliver queues evt. It fails when the client is gone or too slow.
func (o *WSObserver) Deliver(evt model.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	select {
	case <-o.done:
		return errObserverClosed
	default:
	}
	select {
	case o.send <- data:
		return nil
	default:
		o.close()
		return errQueueFull
	}
}

func (o *WSObserver) close() {
	o.once.Do(func() {
		close(o.done)
		o.conn.Close()
	})
}

func (o *WSObserver) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		o.close()
	}()

	for {
		select {
		case <-o.done:
			return
		case msg := <-o.send:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[WARN] websocket write to %s: %v", o.id, err)
				return
			}
		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and returns when the connection drops.
func (o *WSObserver) readPump() {
	o.conn.SetReadLimit(maxMessageSize)
	o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WARN] websocket read from %s: %v", o.id, err)
			}
			return
		}
	}
}

// ServeWS upgrades the request and registers the connection with hub
// until the client disconnects.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[WARN] websocket upgrade: %v", err)
			return
		}
		obs := newWSObserver(conn)
		go obs.writePump()

		if err := hub.Register(obs); err != nil {
			log.Printf("[WARN] register %s: %v", obs.id, err)
			obs.close()
			return
		}
		obs.readPump()
		hub.Unregister(obs.id)
		obs.close()
	}
}
