// Package websocket serves the chat assistant over a socket. Each connection
// keeps its own history and handles one user turn at a time.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"cavision/internal/logger"
	"cavision/middlewares"
	"cavision/models"
	"cavision/services"
	"cavision/structs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FrameReset   = "reset"
	FrameError   = "error"

	// A 5 MB attachment grows by a third as base64.
	maxFrameBytes = 8 << 20
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	writeWait     = 10 * time.Second
	turnTimeout   = 2 * time.Minute
)

// Replier answers one chat turn.
type Replier interface {
	Reply(ctx context.Context, history []models.ChatMessage, turn models.ChatMessage) (*services.ChatReply, error)
}

type ChatHandler struct {
	chat     Replier
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewChatHandler(chat Replier, allowedOrigins []string, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{
		chat: chat,
		log:  log.With("service", "ChatSocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Serve upgrades the request. It must run behind the auth middleware.
func (h *ChatHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan structs.ChatFrame, 4),
		done:    make(chan struct{}),
		handler: h,
		userID:  c.GetString(middlewares.ContextUserID),
	}
	h.log.Debug("chat socket opened", "user_id", client.userID)

	go client.writePump()
	client.readPump(c.Request.Context())
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan structs.ChatFrame
	done    chan struct{}
	handler *ChatHandler
	userID  string
	history []models.ChatMessage
}

// readPump handles frames in order; the next frame is not read until the
// current turn has been answered.
func (c *chatClient) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		c.handler.log.Debug("chat socket closed", "user_id", c.userID)
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.log.Warn("chat socket read failed", "user_id", c.userID, "error", err)
			}
			return
		}

		var frame structs.ChatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.push(structs.ChatFrame{Type: FrameError, Error: "frame must be JSON"})
			continue
		}
		c.handle(ctx, frame)
		// The turn may have outlasted the pong deadline.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *chatClient) handle(ctx context.Context, frame structs.ChatFrame) {
	switch frame.Type {
	case FrameReset:
		c.history = nil
		c.push(structs.ChatFrame{Type: FrameReset})
	case FrameMessage:
		if frame.Message == nil {
			c.push(structs.ChatFrame{Type: FrameError, Error: "message frame needs a message"})
			return
		}
		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		defer cancel()

		reply, err := c.handler.chat.Reply(turnCtx, c.history, *frame.Message)
		if err != nil {
			c.push(structs.ChatFrame{Type: FrameError, Error: err.Error()})
			return
		}
		c.history = reply.History
		msg := reply.Reply
		c.push(structs.ChatFrame{Type: FrameReply, Message: &msg})
	default:
		c.push(structs.ChatFrame{Type: FrameError, Error: "unknown frame type " + frame.Type})
	}
}

// push hands a frame to the writer unless it has already stopped.
func (c *chatClient) push(frame structs.ChatFrame) {
	select {
	case c.send <- frame:
	case <-c.done:
	}
}

func (c *chatClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.handler.log.Warn("chat socket write failed", "user_id", c.userID, "error", err)
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
