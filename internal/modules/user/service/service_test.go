package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/bootstrap"
	"pooltap.app/earnhub/internal/entity"
	ledgerRepo "pooltap.app/earnhub/internal/modules/ledger/repository"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"
	referralRepo "pooltap.app/earnhub/internal/modules/referral/repository"
	referralService "pooltap.app/earnhub/internal/modules/referral/service"
	userDto "pooltap.app/earnhub/internal/modules/user/dto"
	userRepo "pooltap.app/earnhub/internal/modules/user/repository"
	userService "pooltap.app/earnhub/internal/modules/user/service"
	"pooltap.app/earnhub/internal/testutil"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/telegram"
	"pooltap.app/earnhub/pkg/token"
)

const (
	secret   = "test-secret"
	botToken = "123456:test-bot"
)

type recorder struct {
	removed   []string
	published int
}

func (r *recorder) RemoveUser(ctx context.Context, identifier string) error {
	r.removed = append(r.removed, identifier)
	return nil
}

func (r *recorder) PublishUserCount(ctx context.Context) {
	r.published++
}

type harness struct {
	svc       userService.UserService
	db        *gorm.DB
	rec       *recorder
	referrals referralService.ReferralService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	ledger := ledgerService.NewLedgerService(db, ledgerRepo.NewLedgerRepository(db), nil, logger.Nop())
	referrals := referralService.NewReferralService(db, referralRepo.NewReferralRepository(db), ledger, logger.Nop())
	rec := &recorder{}
	verifier := telegram.NewVerifier(botToken, time.Hour)
	svc := userService.NewUserService(userRepo.NewUserRepository(db), referrals, verifier, rec, rec, secret, time.Hour, logger.Nop())
	return &harness{svc: svc, db: db, rec: rec, referrals: referrals}
}

func initData(t *testing.T, id int64, username string) string {
	t.Helper()
	data, err := telegram.Sign(botToken, telegram.WebAppUser{ID: id, FirstName: "Test", Username: username}, time.Now())
	if err != nil {
		t.Fatalf("sign init data: %v", err)
	}
	return data
}

func TestRegisterCreatesUserAndToken(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.Register(context.Background(), userDto.RegisterRequest{InitData: initData(t, 1001, "ann")})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !resp.Created || resp.User.Score != 0 || len(resp.User.ReferralCode) != entity.ReferralCodeLength {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.User.Identifier != "1001" || resp.User.Username != "ann" || resp.User.Role != entity.RolePlayer {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if h.rec.published != 1 {
		t.Fatalf("user count should be published once, got %d", h.rec.published)
	}

	claims, err := token.Parse(secret, resp.AccessToken)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != "1001" || claims.Scope != token.ScopePlayer {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterRejectsUnverifiedInitData(t *testing.T) {
	h := newHarness(t)
	forged, _ := telegram.Sign("999:other-bot", telegram.WebAppUser{ID: 1001, FirstName: "Mallory"}, time.Now())

	for name, data := range map[string]string{
		"forged":  forged,
		"garbage": "user=%7B%22id%22%3A1001%7D",
	} {
		if _, err := h.svc.Register(context.Background(), userDto.RegisterRequest{InitData: data}); !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}

	var count int64
	h.db.Model(&entity.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("no user may be created, got %d", count)
	}
}

func TestRegisterWithoutBotToken(t *testing.T) {
	db := testutil.DB(t)
	ledger := ledgerService.NewLedgerService(db, ledgerRepo.NewLedgerRepository(db), nil, logger.Nop())
	referrals := referralService.NewReferralService(db, referralRepo.NewReferralRepository(db), ledger, logger.Nop())
	svc := userService.NewUserService(userRepo.NewUserRepository(db), referrals, telegram.NewVerifier("", time.Hour), nil, nil, secret, time.Hour, logger.Nop())

	_, err := svc.Register(context.Background(), userDto.RegisterRequest{InitData: initData(t, 1, "ann")})
	if !errors.Is(err, apperror.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Register(ctx, userDto.RegisterRequest{InitData: initData(t, 1001, "ann")})
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}
	second, err := h.svc.Register(ctx, userDto.RegisterRequest{InitData: initData(t, 1001, "annie")})
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if second.Created {
		t.Fatalf("second call must not create")
	}
	if second.User.ReferralCode != first.User.ReferralCode || second.User.Username != "annie" {
		t.Fatalf("unexpected second response %+v", second.User)
	}

	var count int64
	h.db.Model(&entity.User{}).Count(&count)
	if count != 1 || h.rec.published != 1 {
		t.Fatalf("count=%d published=%d", count, h.rec.published)
	}
}

func TestRegisterAsAdminYieldsPlayerScope(t *testing.T) {
	h := newHarness(t)
	if err := bootstrap.SeedAdmin(h.db, "1001", "hunter22", logger.Nop()); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}

	resp, err := h.svc.Register(context.Background(), userDto.RegisterRequest{InitData: initData(t, 1001, "boss")})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Scope != token.ScopePlayer {
		t.Fatalf("scope=%q", resp.Scope)
	}
	if claims, _ := token.Parse(secret, resp.AccessToken); claims == nil || claims.Scope != token.ScopePlayer {
		t.Fatalf("platform sign-in must never mint admin tokens: %+v", claims)
	}
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := bootstrap.SeedAdmin(h.db, "boss", "hunter22", logger.Nop()); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	testutil.CreateUser(t, h.db, "player", "player")

	resp, err := h.svc.AdminLogin(ctx, userDto.AdminLoginRequest{Identifier: "boss", Password: "hunter22"})
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	claims, err := token.Parse(secret, resp.AccessToken)
	if err != nil || claims.Scope != token.ScopeAdmin || claims.Subject != "boss" {
		t.Fatalf("unexpected claims %+v err=%v", claims, err)
	}

	for _, req := range []userDto.AdminLoginRequest{
		{Identifier: "boss", Password: "wrong"},
		{Identifier: "player", Password: "hunter22"},
		{Identifier: "ghost", Password: "hunter22"},
	} {
		if _, err := h.svc.AdminLogin(ctx, req); !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", req.Identifier, err)
		}
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	alice, err := h.svc.Register(ctx, userDto.RegisterRequest{InitData: initData(t, 1, "alice")})
	if err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	bob, err := h.svc.Register(ctx, userDto.RegisterRequest{InitData: initData(t, 2, "bob"), ReferralCode: alice.User.ReferralCode})
	if err != nil {
		t.Fatalf("Register bob: %v", err)
	}
	if bob.User.Referrer == nil || *bob.User.Referrer != "1" {
		t.Fatalf("bob.referrer=%v", bob.User.Referrer)
	}

	var a entity.User
	h.db.Where("identifier = ?", "1").First(&a)
	if a.ReferralCount != 1 || a.Score != referralService.ReferralBonus {
		t.Fatalf("alice not credited: %+v", a)
	}
}

func TestRegisterWithBadCodeStillCreates(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.Register(context.Background(), userDto.RegisterRequest{InitData: initData(t, 2, "u2"), ReferralCode: "BADCODE"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !resp.Created || resp.User.Referrer != nil {
		t.Fatalf("unexpected %+v", resp.User)
	}
}

func TestUpdateUser(t *testing.T) {
	h := newHarness(t)
	testutil.CreateUser(t, h.db, "u1", "old")

	name := "new"
	user, err := h.svc.Update(context.Background(), "u1", userDto.UpdateUserRequest{Username: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.Username != "new" {
		t.Fatalf("username=%q", user.Username)
	}

	if _, err := h.svc.Update(context.Background(), "ghost", userDto.UpdateUserRequest{Username: &name}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	h := newHarness(t)
	testutil.CreateUser(t, h.db, "u1", "ann")
	task := testutil.CreateTask(t, h.db, "follow", 10, true)
	h.db.Create(&entity.TaskCompletion{UserIdentifier: "u1", TaskID: task.ID, TaskName: task.Name, TaskPoints: task.Points, Status: entity.StatusStarted, StartedAt: time.Now()})
	h.db.Create(&entity.ScoreEvent{UserIdentifier: "u1", Score: 5, Reason: entity.ReasonGame, CreatedAt: time.Now()})

	if err := h.svc.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var users, completions, events int64
	h.db.Model(&entity.User{}).Count(&users)
	h.db.Model(&entity.TaskCompletion{}).Count(&completions)
	h.db.Model(&entity.ScoreEvent{}).Count(&events)
	if users != 0 || completions != 0 || events != 0 {
		t.Fatalf("leftovers users=%d completions=%d events=%d", users, completions, events)
	}
	if len(h.rec.removed) != 1 || h.rec.removed[0] != "u1" {
		t.Fatalf("cache not cleaned: %v", h.rec.removed)
	}

	if err := h.svc.Delete(context.Background(), "u1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReferrerClearsReferredUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, h.db, "alice", "alice")
	testutil.CreateUser(t, h.db, "bob", "bob")
	if err := h.referrals.RegisterReferral(ctx, "bob", alice.ReferralCode); err != nil {
		t.Fatalf("RegisterReferral: %v", err)
	}

	if err := h.svc.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var bob entity.User
	if err := h.db.Where("identifier = ?", "bob").First(&bob).Error; err != nil {
		t.Fatalf("referred user must survive: %v", err)
	}
	if bob.Referrer != nil {
		t.Fatalf("referrer should be cleared, got %q", *bob.Referrer)
	}
	var edges int64
	h.db.Model(&entity.ReferralEdge{}).Count(&edges)
	if edges != 0 {
		t.Fatalf("edges=%d want 0", edges)
	}
}
