// handlers/events.go - Realtime change notifications over WebSocket
package handlers

import (
	"time"

	"zentro/middleware"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// RequireUpgrade rejects plain HTTP requests to the event stream.
func RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.JSONError(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}
	return c.Next()
}

// StreamEvents forwards the hub events of the authenticated user until the
// client disconnects. Clients do not send anything; reads only detect close.
func (h *Handler) StreamEvents() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		if userID == "" {
			return
		}
		sub := h.Hub.Subscribe(userID)
		defer sub.Close()

		log := h.Log.With().Str("user_id", userID).Logger()
		log.Debug().Msg("event stream opened")

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-closed:
				log.Debug().Msg("event stream closed by client")
				return
			case evt, ok := <-sub.C:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(evt); err != nil {
					log.Debug().Err(err).Msg("event stream write failed")
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
