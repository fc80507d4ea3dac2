package ws

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/otodzorelashvili/Sea-Backend/internal/hub"
)

// Gateway owns the websocket side of a session: one reader goroutine driving
// the router in arrival order, one writer goroutine draining the session's
// send buffer.
type Gateway struct {
	hub    Registry
	router *Router
	log    *zap.SugaredLogger

	pingInterval  time.Duration
	writeDeadline time.Duration
	maxMsgSize    int64
}

func NewGateway(h Registry, r *Router, pingInterval, writeDeadline time.Duration, maxMsgSize int64, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		hub: h, router: r, log: log,
		pingInterval: pingInterval, writeDeadline: writeDeadline, maxMsgSize: maxMsgSize,
	}
}

// Handler returns the connection handler to mount behind websocket.New.
// An optional ?token=<jwt> query is captured for the send-time auth policy.
func (g *Gateway) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		s := hub.NewSession(conn.Query("token"))
		g.hub.Register(s)
		g.log.Infow("connected", "socket", s.ID)

		go g.writePump(conn, s)
		g.readPump(conn, s)

		g.router.Disconnect(context.Background(), s)
		_ = conn.Close()
	}
}

func (g *Gateway) readPump(conn *websocket.Conn, s *hub.Session) {
	conn.SetReadLimit(g.maxMsgSize)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		g.router.Handle(context.Background(), s, data)
	}
}

func (g *Gateway) writePump(conn *websocket.Conn, s *hub.Session) {
	ticker := time.NewTicker(g.pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case <-s.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case frame := <-s.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				g.log.Warnw("write frame", "socket", s.ID, "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
