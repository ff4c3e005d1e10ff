package presence

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dm_chat/internal/model"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var ErrConnClosed = errors.New("connection closed")

// Conn wraps a websocket with a buffered outbound channel drained by a
// single writer goroutine, so pushes never block the caller. A full buffer
// or a closed socket surfaces as an error the caller treats as "not live".
type Conn struct {
	user string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewConn(user string, ws *websocket.Conn) *Conn {
	return &Conn{
		user: user,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Conn) User() string {
	return c.user
}

// Start launches the write loop. Call exactly once per connection.
func (c *Conn) Start() {
	go c.writeLoop()
}

// Send enqueues an event for delivery. Fire-and-forget: a slow client
// that fills the buffer loses the connection rather than stalling senders.
func (c *Conn) Send(ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- data:
		return nil
	default:
		c.Close()
		return errors.New("send buffer full")
	}
}

// Close tears the socket down and stops the write loop. Safe to call
// multiple times and from any goroutine.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
