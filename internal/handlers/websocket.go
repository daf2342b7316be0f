package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/social-signaling/internal/middleware"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/mossy-p/social-signaling/internal/signaling"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20 // SDP offers with many candidates get large
)

var errMissingEvent = errors.New("missing event name")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client is one WebSocket connection. It is the handle the hub stores in
// its presence registry.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Send queues env for the write pump. It never blocks; false means the
// connection is gone or its buffer is full.
func (c *Client) Send(env models.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.Warn("failed to marshal message", zap.Error(err))
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown sends a close frame and closes the socket. WriteControl may run
// concurrently with the write pump.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			c.log.Debug("close frame not sent", zap.Error(err))
		}
		c.conn.Close()
	})
}

// SignalingHandler upgrades requests and pumps frames between the socket
// and the hub.
type SignalingHandler struct {
	hub        *signaling.Hub
	sendBuffer int
	log        *zap.Logger
}

func NewSignalingHandler(hub *signaling.Hub, sendBuffer int, log *zap.Logger) *SignalingHandler {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &SignalingHandler{hub: hub, sendBuffer: sendBuffer, log: log}
}

// HandleSignaling handles WebSocket connections for presence and signaling
func (s *SignalingHandler) HandleSignaling(c *gin.Context) {
	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		id:     uuid.New().String(),
		userID: c.GetString(middleware.UserIDKey),
		conn:   conn,
		send:   make(chan []byte, s.sendBuffer),
		done:   make(chan struct{}),
	}
	client.log = s.log.With(zap.String("conn_id", client.id))

	if !s.hub.Open(client) {
		client.log.Warn("hub stopped, refusing connection")
		client.shutdown()
		return
	}

	// Start goroutines for reading and writing
	go s.writePump(client)
	go s.readPump(client)
}

func (s *SignalingHandler) readPump(c *Client) {
	defer func() {
		s.hub.Close(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Info("websocket error", zap.Error(err))
			}
			return
		}

		env, err := decodeEnvelope(message)
		if err != nil {
			c.log.Warn("failed to parse message", zap.Error(err))
			continue
		}
		if !s.hub.Dispatch(c, env) {
			return
		}
	}
}

func (s *SignalingHandler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Info("failed to write message", zap.Error(err))
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

// decodeEnvelope keeps numbers as json.Number so payloads are forwarded
// without float rounding.
func decodeEnvelope(message []byte) (models.Envelope, error) {
	var env models.Envelope
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return models.Envelope{}, err
	}
	if env.Event == "" {
		return models.Envelope{}, errMissingEvent
	}
	return env, nil
}
