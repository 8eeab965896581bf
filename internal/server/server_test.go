package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pooltap.app/earnhub/internal/bootstrap"
	"pooltap.app/earnhub/internal/config"
	"pooltap.app/earnhub/internal/testutil"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/telegram"
)

const botToken = "123456:test-bot"

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "test",
		Port:            "0",
		AllowedOrigins:  []string{"http://localhost:3000"},
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,

		TelegramBotToken: botToken,
		InitDataMaxAge:   time.Hour,

		MaxTaskRetries:  3,
		RequestTimeout:  5 * time.Second,
		WeeklyResetCron: "0 12 * * 0",
		RateLimitScore:  time.Second,
	}
}

func signedInitData(t *testing.T, id int64, username string) string {
	t.Helper()
	data, err := telegram.Sign(botToken, telegram.WebAppUser{ID: id, FirstName: username, Username: username}, time.Now())
	if err != nil {
		t.Fatalf("sign init data: %v", err)
	}
	return data
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) call(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)

	out := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestTaskClaimFlowOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	srv, err := NewServer(testConfig(), db, nil, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	c := &client{t: t, h: srv.Handler()}

	if code, _ := c.call(http.MethodGet, "/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz=%d", code)
	}
	if code, _ := c.call(http.MethodGet, "/api/users/me", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous /users/me=%d", code)
	}

	code, body := c.call(http.MethodPost, "/api/users/register", map[string]string{"init_data": signedInitData(t, 1001, "ann")})
	if code != http.StatusCreated {
		t.Fatalf("register=%d %v", code, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}
	c.token = token

	task := testutil.CreateTask(t, db, "join", 50, false)
	base := "/api/tasks/" + task.ID.String()

	for _, step := range []struct {
		path   string
		status string
	}{
		{"/start", "started"},
		{"/return", "verify"},
		{"/confirm", "approved"},
		{"/claim", "claimed"},
	} {
		code, body := c.call(http.MethodPost, base+step.path, nil)
		if code != http.StatusOK {
			t.Fatalf("%s=%d %v", step.path, code, body)
		}
		if body["status"] != step.status {
			t.Fatalf("%s status=%v want %s", step.path, body["status"], step.status)
		}
	}

	// a second claim is a no-op
	if code, _ := c.call(http.MethodPost, base+"/claim", nil); code != http.StatusOK {
		t.Fatalf("repeat claim=%d", code)
	}

	code, body = c.call(http.MethodGet, "/api/scores/me", nil)
	if code != http.StatusOK || body["score"] != float64(50) {
		t.Fatalf("score=%d %v", code, body)
	}

	if code, _ := c.call(http.MethodGet, "/api/admin/tasks", nil); code != http.StatusForbidden {
		t.Fatalf("player on admin route=%d", code)
	}
	if code, _ := c.call(http.MethodGet, "/api/users", nil); code != http.StatusForbidden {
		t.Fatalf("player on user list=%d", code)
	}
}

func TestRegisterValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(testConfig(), testutil.DB(t), nil, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	c := &client{t: t, h: srv.Handler()}

	if code, _ := c.call(http.MethodPost, "/api/users/register", map[string]string{"referral_code": "ABC"}); code != http.StatusBadRequest {
		t.Fatalf("missing init data=%d", code)
	}
}

func TestInvalidScheduleFailsWiring(t *testing.T) {
	cfg := testConfig()
	cfg.WeeklyResetCron = "not a cron"
	if _, err := NewServer(cfg, testutil.DB(t), nil, nil, logger.Nop()); err == nil {
		t.Fatalf("expected error for bad cron spec")
	}
}

func TestAdminIdentityCannotBeClaimedThroughRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	if err := bootstrap.SeedAdmin(db, "777", "hunter22", logger.Nop()); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	srv, err := NewServer(testConfig(), db, nil, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	c := &client{t: t, h: srv.Handler()}

	// a bare identifier is no longer accepted
	code, body := c.call(http.MethodPost, "/api/users/register", map[string]string{"identifier": "777", "username": "mallory"})
	if code != http.StatusBadRequest || body["access_token"] != nil {
		t.Fatalf("unsigned register=%d %v", code, body)
	}

	forged, _ := telegram.Sign("999:other-bot", telegram.WebAppUser{ID: 777, FirstName: "mallory"}, time.Now())
	if code, body := c.call(http.MethodPost, "/api/users/register", map[string]string{"init_data": forged}); code != http.StatusUnauthorized {
		t.Fatalf("forged register=%d %v", code, body)
	}

	// even a genuine platform sign-in of the admin account only gets player scope
	code, body = c.call(http.MethodPost, "/api/users/register", map[string]string{"init_data": signedInitData(t, 777, "boss")})
	if code != http.StatusOK {
		t.Fatalf("register=%d %v", code, body)
	}
	c.token, _ = body["access_token"].(string)
	if code, _ := c.call(http.MethodGet, "/api/users", nil); code != http.StatusForbidden {
		t.Fatalf("player-scoped admin on /users=%d", code)
	}
	if code, _ := c.call(http.MethodDelete, "/api/users/777", nil); code != http.StatusForbidden {
		t.Fatalf("player-scoped admin delete=%d", code)
	}

	c.token = ""
	if code, _ := c.call(http.MethodPost, "/api/admin/login", map[string]string{"identifier": "777", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Fatalf("bad password login=%d", code)
	}
	code, body = c.call(http.MethodPost, "/api/admin/login", map[string]string{"identifier": "777", "password": "hunter22"})
	if code != http.StatusOK {
		t.Fatalf("admin login=%d %v", code, body)
	}
	c.token, _ = body["access_token"].(string)
	if code, _ := c.call(http.MethodGet, "/api/users", nil); code != http.StatusOK {
		t.Fatalf("admin on /users=%d", code)
	}
}
