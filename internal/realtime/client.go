package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const sendQueueSize = 32

// wsConn adapts a websocket to the hub's Conn interface. Sends go through a
// buffered queue drained by a single writer goroutine; a client that cannot
// keep up overflows the queue and gets evicted instead of blocking fan-out.
type wsConn struct {
	ws        *websocket.Conn
	queue     chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

var errSendQueueFull = errors.New("send queue full")

func (c *wsConn) Send(event Event) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.queue <- event:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close is safe to call from both the hub's eviction path and the ServeWS
// defer; the channel is closed exactly once.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.ws.Close(websocket.StatusNormalClosure, "")
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case event := <-c.queue:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, c.ws, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request, registers the connection under the user and
// blocks until the client disconnects. The caller has already authenticated
// the user.
func ServeWS(hub *Hub, userID string, w http.ResponseWriter, r *http.Request) error {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // cross-origin is handled by the HTTP layer's CORS middleware
	})
	if err != nil {
		return err
	}

	conn := &wsConn{
		ws:     ws,
		queue:  make(chan Event, sendQueueSize),
		closed: make(chan struct{}),
	}

	hub.Register(userID, conn)
	defer func() {
		hub.Unregister(userID, conn)
		_ = conn.Close()
	}()

	// Clients only listen; CloseRead keeps control frames serviced and
	// cancels the context when the peer goes away.
	ctx := ws.CloseRead(r.Context())
	conn.writeLoop(ctx)
	return nil
}
