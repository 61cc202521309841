package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrConnClosed = errors.New("websocket connection closed")

// conn serializes writes to one socket
type conn struct {
	id     id.ConnectionID
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{id: id.NewConnectionID(), ws: ws}
}

func (c *conn) send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteJSON(msg)
}

func (c *conn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.ws.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.ws.Close()
}

// contentSurface is a live webview attached over /bridge
type contentSurface struct {
	label string
	conn  *conn
}

func (s *contentSurface) Label() string      { return s.label }
func (s *contentSurface) Kind() surface.Kind { return surface.KindContent }

// Eval pushes script down the socket; the page runs it on its own time
func (s *contentSurface) Eval(ctx context.Context, script string) error {
	return s.conn.send(ctx, Message{Type: TypeEval, Script: script})
}

func (s *contentSurface) Close() error { return s.conn.close() }
