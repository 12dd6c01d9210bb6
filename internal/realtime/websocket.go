// internal/realtime/websocket.go
package realtime

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pingPeriod = 30 * time.Second

// Serve attaches conn to the hub for userID and blocks until the peer goes away.
// The connection is push-only; anything the peer sends is read and discarded.
// conn must not be used after Serve returns, so the writer is always joined first.
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID) {
	client := NewClient(userID)
	h.RegisterClient(client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					_ = conn.Close()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Debug("websocket write", zap.Error(err), zap.Stringer("user_id", userID))
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.UnregisterClient(client)
	<-writerDone
}
