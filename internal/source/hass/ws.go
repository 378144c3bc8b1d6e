package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsSession is an authenticated connection to the Home Assistant WebSocket
// command API. Commands are serialized: one request in flight at a time, with
// the response matched by message id.
type wsSession struct {
	conn   *websocket.Conn
	nextID int64
	mu     sync.Mutex
	logger *slog.Logger
}

type wsMessage struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// dialWS connects and completes the auth_required / auth / auth_ok handshake.
func dialWS(ctx context.Context, baseURL, token string, logger *slog.Logger) (*wsSession, error) {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/api/websocket"

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	var hello wsMessage
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "handshake read failed")
		return nil, fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		conn.Close(websocket.StatusProtocolError, "unexpected greeting")
		return nil, fmt.Errorf("unexpected greeting %q", hello.Type)
	}

	auth := map[string]string{"type": "auth", "access_token": token}
	if err := wsjson.Write(ctx, conn, auth); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "auth write failed")
		return nil, fmt.Errorf("write auth: %w", err)
	}

	var reply wsMessage
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "auth read failed")
		return nil, fmt.Errorf("read auth reply: %w", err)
	}
	if reply.Type != "auth_ok" {
		conn.Close(websocket.StatusPolicyViolation, "auth rejected")
		return nil, fmt.Errorf("authentication rejected: %s", reply.Type)
	}

	logger.Debug("websocket session established", "url", wsURL)
	return &wsSession{conn: conn, logger: logger}, nil
}

// command sends one command and waits for its result frame. Frames for other
// ids (event pushes, stale replies) are discarded.
func (s *wsSession) command(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	payload["id"] = id

	if err := wsjson.Write(ctx, s.conn, payload); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			return nil, fmt.Errorf("read result: %w", err)
		}
		if msg.Type != "result" || msg.ID != id {
			continue
		}
		if !msg.Success {
			if msg.Error != nil {
				return nil, fmt.Errorf("command failed: %s (%s)", msg.Error.Message, msg.Error.Code)
			}
			return nil, fmt.Errorf("command failed")
		}
		return msg.Result, nil
	}
}

func (s *wsSession) close() {
	s.conn.Close(websocket.StatusNormalClosure, "")
}

// session returns the live WebSocket session, dialing if needed.
func (c *Client) session(ctx context.Context) (*wsSession, error) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil {
		return c.ws, nil
	}
	ws, err := dialWS(ctx, c.baseURL, c.token, c.logger)
	if err != nil {
		return nil, err
	}
	c.ws = ws
	return ws, nil
}

// dropSession discards a session after a failed round trip so the next call
// redials.
func (c *Client) dropSession() {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil {
		c.ws.close()
		c.ws = nil
	}
}
