package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	realtimeService "pooltap.app/earnhub/internal/modules/realtime/service"
	"pooltap.app/earnhub/pkg/logger"
)

const writeWait = 10 * time.Second

type RealtimeHandler struct {
	service  realtimeService.RealtimeService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewRealtimeHandler(service realtimeService.RealtimeService, allowedOrigins []string, log *logger.Logger) *RealtimeHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &RealtimeHandler{
		service: service,
		log:     log.With("component", "realtime_ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// UserCount sends the current count on connect, then every published update
// until the client goes away.
func (h *RealtimeHandler) UserCount(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	current, err := h.service.CurrentCount(ctx)
	if err != nil {
		h.log.Warn("failed to load user count", "error", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(current); err != nil {
		return
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates, closeSub, err := h.service.Subscribe(ctx)
	if err != nil {
		h.log.Debug("live updates disabled", "error", err)
	}
	defer closeSub()

	for {
		select {
		case payload, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				h.log.Debug("failed to write websocket message", "error", err)
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
