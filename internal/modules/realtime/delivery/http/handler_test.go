package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	realtimeDto "pooltap.app/earnhub/internal/modules/realtime/dto"
	realtimeService "pooltap.app/earnhub/internal/modules/realtime/service"
	"pooltap.app/earnhub/pkg/logger"
)

type staticCounter int64

func (c staticCounter) Count(ctx context.Context) (int64, error) {
	return int64(c), nil
}

func TestUserCountSendsCurrentCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := realtimeService.NewRealtimeService(nil, staticCounter(42), logger.Nop())
	h := NewRealtimeHandler(svc, []string{"http://localhost:3000"}, logger.Nop())

	r := gin.New()
	r.GET("/api/ws/user-count", h.UserCount)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/user-count"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg realtimeDto.UserCountMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != realtimeDto.TypeUserCount || msg.Count != 42 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestUserCountRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := realtimeService.NewRealtimeService(nil, staticCounter(1), logger.Nop())
	h := NewRealtimeHandler(svc, []string{"http://localhost:3000"}, logger.Nop())

	r := gin.New()
	r.GET("/ws", h.UserCount)
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := map[string][]string{"Origin": {"http://evil.example"}}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("foreign origin should be refused")
	}
}
