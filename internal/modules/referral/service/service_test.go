package service_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	ledgerRepo "pooltap.app/earnhub/internal/modules/ledger/repository"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"
	referralRepo "pooltap.app/earnhub/internal/modules/referral/repository"
	referralService "pooltap.app/earnhub/internal/modules/referral/service"
	"pooltap.app/earnhub/internal/testutil"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

func newService(t *testing.T) (referralService.ReferralService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	ledger := ledgerService.NewLedgerService(db, ledgerRepo.NewLedgerRepository(db), nil, logger.Nop())
	return referralService.NewReferralService(db, referralRepo.NewReferralRepository(db), ledger, logger.Nop()), db
}

func reload(t *testing.T, db *gorm.DB, identifier string) entity.User {
	t.Helper()
	var u entity.User
	if err := db.Where("identifier = ?", identifier).First(&u).Error; err != nil {
		t.Fatalf("reload %s: %v", identifier, err)
	}
	return u
}

func TestRegisterReferralCreditsReferrer(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", "alice")
	testutil.CreateUser(t, db, "bob", "bob")

	if err := svc.RegisterReferral(ctx, "bob", alice.ReferralCode); err != nil {
		t.Fatalf("RegisterReferral: %v", err)
	}

	bob := reload(t, db, "bob")
	if bob.Referrer == nil || *bob.Referrer != "alice" {
		t.Fatalf("bob.referrer=%v", bob.Referrer)
	}
	a := reload(t, db, "alice")
	if a.ReferralCount != 1 || a.WeeklyReferrals != 1 || a.Score != referralService.ReferralBonus {
		t.Fatalf("unexpected referrer %+v", a)
	}

	list, err := svc.ListReferrals(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReferrals: %v", err)
	}
	if len(list.Referrals) != 1 || list.Referrals[0].Identifier != "bob" {
		t.Fatalf("unexpected referrals %+v", list.Referrals)
	}
	if list.Earnings != referralService.ReferralBonus {
		t.Fatalf("earnings=%d", list.Earnings)
	}
}

func TestRegisterReferralIsIdempotent(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", "alice")
	carol := testutil.CreateUser(t, db, "carol", "carol")
	testutil.CreateUser(t, db, "bob", "bob")

	if err := svc.RegisterReferral(ctx, "bob", alice.ReferralCode); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := svc.RegisterReferral(ctx, "bob", alice.ReferralCode); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := svc.RegisterReferral(ctx, "bob", carol.ReferralCode); err != nil {
		t.Fatalf("other code: %v", err)
	}

	if a := reload(t, db, "alice"); a.ReferralCount != 1 || a.Score != referralService.ReferralBonus {
		t.Fatalf("alice credited more than once: %+v", a)
	}
	if c := reload(t, db, "carol"); c.ReferralCount != 0 {
		t.Fatalf("carol should not be credited: %+v", c)
	}
	var edges int64
	db.Model(&entity.ReferralEdge{}).Count(&edges)
	if edges != 1 {
		t.Fatalf("edges=%d", edges)
	}
}

func TestRegisterReferralBadCodeIsSoftFail(t *testing.T) {
	svc, db := newService(t)
	testutil.CreateUser(t, db, "u2", "u2")

	if err := svc.RegisterReferral(context.Background(), "u2", "BADCODE"); err != nil {
		t.Fatalf("bad code must not fail: %v", err)
	}
	if u := reload(t, db, "u2"); u.Referrer != nil {
		t.Fatalf("referrer should stay unset, got %v", *u.Referrer)
	}
}

func TestRegisterReferralSelfIsIgnored(t *testing.T) {
	svc, db := newService(t)
	u := testutil.CreateUser(t, db, "u1", "u1")

	if err := svc.RegisterReferral(context.Background(), "u1", u.ReferralCode); err != nil {
		t.Fatalf("self referral must not fail: %v", err)
	}
	if got := reload(t, db, "u1"); got.Referrer != nil || got.ReferralCount != 0 || got.Score != 0 {
		t.Fatalf("self referral changed state: %+v", got)
	}
}

func TestListReferralsUnknownUser(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.ListReferrals(context.Background(), "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
