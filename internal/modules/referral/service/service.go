package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"
	referralDto "pooltap.app/earnhub/internal/modules/referral/dto"
	referralRepo "pooltap.app/earnhub/internal/modules/referral/repository"
	"pooltap.app/earnhub/pkg/logger"
)

// ReferralBonus is credited to the referrer for every referred signup.
const ReferralBonus int64 = 20

var errAlreadyReferred = errors.New("already referred")

type ReferralService interface {
	// RegisterReferral attributes newIdentifier to the owner of code. Bad codes
	// are logged and ignored so they never block signup.
	RegisterReferral(ctx context.Context, newIdentifier, code string) error
	ListReferrals(ctx context.Context, identifier string) (*referralDto.ReferralListResponse, error)
}

type referralService struct {
	db     *gorm.DB
	repo   referralRepo.ReferralRepository
	ledger ledgerService.LedgerService
	log    *logger.Logger
	now    func() time.Time
}

func NewReferralService(db *gorm.DB, repo referralRepo.ReferralRepository, ledger ledgerService.LedgerService, log *logger.Logger) ReferralService {
	return &referralService{
		db:     db,
		repo:   repo,
		ledger: ledger,
		log:    log.With("component", "referral"),
		now:    time.Now,
	}
}

func (s *referralService) RegisterReferral(ctx context.Context, newIdentifier, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	newUser, err := s.repo.FindUser(ctx, newIdentifier)
	if err != nil {
		return err
	}
	if newUser.Referrer != nil {
		return nil
	}

	referrer, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn("ignoring unknown referral code", "identifier", newIdentifier, "code", code)
			return nil
		}
		return err
	}
	if referrer.Identifier == newIdentifier {
		s.log.Warn("ignoring self referral", "identifier", newIdentifier)
		return nil
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		set, err := repo.SetReferrer(ctx, newIdentifier, referrer.Identifier)
		if err != nil {
			return err
		}
		if !set {
			return errAlreadyReferred
		}

		if err := repo.CreateEdge(ctx, &entity.ReferralEdge{
			ReferrerIdentifier: referrer.Identifier,
			ReferralIdentifier: newIdentifier,
			CreatedAt:          now,
		}); err != nil {
			return err
		}

		if err := repo.IncrementCounts(ctx, referrer.Identifier, entity.WeekWindowStart(now)); err != nil {
			return err
		}

		ref := "referral:" + newIdentifier
		_, err = s.ledger.ApplyDeltaTx(ctx, tx, referrer.Identifier, ReferralBonus, entity.ReasonReferralBonus, &ref)
		return err
	})
	if errors.Is(err, errAlreadyReferred) {
		return nil
	}
	if err != nil {
		return err
	}

	s.ledger.SyncCache(ctx, referrer.Identifier)
	s.log.Info("referral registered", "referrer", referrer.Identifier, "referral", newIdentifier)
	return nil
}

func (s *referralService) ListReferrals(ctx context.Context, identifier string) (*referralDto.ReferralListResponse, error) {
	user, err := s.repo.FindUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListReferrals(ctx, identifier)
	if err != nil {
		return nil, err
	}

	referrals := make([]referralDto.ReferralResponse, 0, len(rows))
	for _, r := range rows {
		referrals = append(referrals, referralDto.ReferralResponse{
			Identifier: r.Identifier,
			Username:   r.Username,
			Score:      r.Score,
			ReferredAt: r.ReferredAt,
		})
	}

	return &referralDto.ReferralListResponse{
		Referrals:     referrals,
		ReferralCount: user.ReferralCount,
		ReferralCode:  user.ReferralCode,
		Earnings:      int64(user.ReferralCount) * ReferralBonus,
	}, nil
}
