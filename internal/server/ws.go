package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"switchboard/internal/async"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleStream upgrades to WebSocket and mirrors the coordinator's
// subscription: the current view immediately, then every pass start and
// finish. The connection closes when the client goes away or the write
// fails; a slow client only ever misses intermediate views, matching the
// subscription's latest-wins buffer.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	views, cancel := s.deps.Coordinator.Subscribe()
	done := make(chan struct{})

	// Reader: we expect no client messages, but reading is what surfaces
	// close frames and dead peers.
	async.Go(s.logger, "ws-stream-reader", func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	async.Go(s.logger, "ws-stream-writer", func() {
		defer func() {
			cancel()
			_ = conn.Close()
		}()
		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case view, ok := <-views:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(payloadFromView(view)); err != nil {
					s.logger.Debug("websocket write failed, dropping stream: %v", err)
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}
