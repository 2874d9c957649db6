package http

import (
	"context"
	"encoding/json"
	"time"

	"office-dashboard/internal/dashboard/config"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/metrics"
	"office-dashboard/internal/shared/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
	wsReadLimit  = 64 << 10
)

// Client message types.
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
	ClientPing        = "ping"
)

// ClientMessage is one frame sent by a listener.
type ClientMessage struct {
	Type           string       `json:"type"`
	SubscriptionID string       `json:"subscriptionId"`
	Kind           string       `json:"kind,omitempty"`
	DocumentID     string       `json:"documentId,omitempty"`
	Query          *model.Query `json:"query,omitempty"`
	ResumeToken    string       `json:"resumeToken,omitempty"`
}

// WebSocketHandler serves live queries over websocket connections.
type WebSocketHandler struct {
	realtime usecase.RealtimeUsecase
	cfg      config.RealtimeConfig
	log      logger.Logger
}

func NewWebSocketHandler(realtime usecase.RealtimeUsecase, cfg config.RealtimeConfig, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{realtime: realtime, cfg: cfg, log: log.WithComponent("websocket")}
}

// RegisterRoutes mounts the listen endpoint. protect must authenticate the
// upgrade request and leave the principal in the fiber locals.
func (h *WebSocketHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	path := h.cfg.WebSocketPath
	router.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, protect)
	router.Get(path, websocket.New(h.serve))
}

// wsSession is the state of one connection. Only writeLoop writes to conn.
type wsSession struct {
	id        string
	conn      *websocket.Conn
	ctx       context.Context
	cancel    context.CancelFunc
	out       chan usecase.LiveMessage
	limiter   *rate.Limiter
	log       logger.Logger
	writeDone chan struct{}
}

func (h *WebSocketHandler) serve(conn *websocket.Conn) {
	p, ok := conn.Locals(utils.PrincipalLocalsKey).(utils.Principal)
	if !ok {
		_ = conn.WriteJSON(usecase.LiveMessage{Type: usecase.MessageError, Error: "authentication required"})
		return
	}

	ctx, cancel := context.WithCancel(utils.WithPrincipal(context.Background(), p))
	s := &wsSession{
		id:        uuid.NewString(),
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
		out:       make(chan usecase.LiveMessage, h.cfg.ClientSendBuffer),
		limiter:   rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst),
		writeDone: make(chan struct{}),
	}
	s.log = h.log.WithContext(ctx).WithFields(map[string]interface{}{"connection_id": s.id})

	metrics.ConnectionOpened()
	s.log.Debug("websocket connection opened")
	defer func() {
		h.realtime.UnsubscribeAll(s.id)
		cancel()
		<-s.writeDone
		metrics.ConnectionClosed()
		s.log.Debug("websocket connection closed")
	}()

	go s.writeLoop()
	h.readLoop(s)
}

func (h *WebSocketHandler) readLoop(s *wsSession) {
	s.conn.SetReadLimit(wsReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warnf("websocket read failed: %v", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if !s.limiter.Allow() {
			metrics.MessageThrottled()
			s.send(usecase.LiveMessage{Type: usecase.MessageError, Error: "rate limit exceeded"})
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.send(usecase.LiveMessage{Type: usecase.MessageError, Error: "invalid message"})
			continue
		}
		h.dispatch(s, msg)
		if s.ctx.Err() != nil {
			return
		}
	}
}

func (h *WebSocketHandler) dispatch(s *wsSession, msg ClientMessage) {
	switch msg.Type {
	case ClientSubscribe:
		req := usecase.SubscribeRequest{
			ConnectionID:   s.id,
			SubscriptionID: msg.SubscriptionID,
			Kind:           msg.Kind,
			DocumentID:     msg.DocumentID,
			ResumeToken:    msg.ResumeToken,
			Out:            s.out,
		}
		if msg.Query != nil {
			req.Query = *msg.Query
		}
		if err := h.realtime.Subscribe(s.ctx, req); err != nil {
			s.send(usecase.LiveMessage{
				Type:           usecase.MessageError,
				SubscriptionID: msg.SubscriptionID,
				Error:          apperrors.AsAppError(err).Message,
			})
		}
	case ClientUnsubscribe:
		h.realtime.Unsubscribe(s.id, msg.SubscriptionID)
		s.send(usecase.LiveMessage{Type: usecase.MessageUnsubscribed, SubscriptionID: msg.SubscriptionID})
	case ClientPing:
		s.send(usecase.LiveMessage{Type: usecase.MessagePong})
	default:
		s.send(usecase.LiveMessage{Type: usecase.MessageError, Error: "unknown message type " + msg.Type})
	}
}

// send queues a reply to the client, waiting for buffer space.
func (s *wsSession) send(msg usecase.LiveMessage) {
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

func (s *wsSession) writeLoop() {
	defer close(s.writeDone)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Debugf("websocket write failed: %v", err)
				s.cancel()
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				s.cancel()
				_ = s.conn.Close()
				return
			}
		}
	}
}
