package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"localeditor/utils"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingEvery      = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// ServeSession upgrades the request and streams every event published for
// sessionID until the client disconnects. Slow clients lose events rather
// than block publishers.
func ServeSession(bus Bus, w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan []byte, sendBufferSize)
	err = bus.Subscribe(ctx, BuildChannelName(sessionID), func(_ context.Context, payload []byte) error {
		select {
		case send <- payload:
		default:
			utils.Logger.Warn("Dropping session event for slow websocket client",
				zap.String("session_id", sessionID.String()))
		}
		return nil
	})
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": err.Error()})
		return
	}

	hello, _ := json.Marshal(map[string]string{"type": "subscribed", "session_id": sessionID.String()})
	send <- hello

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-send:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(gws.TextMessage, payload); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(gws.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader: only keeps deadlines fresh and notices the close.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	<-writerDone
}
