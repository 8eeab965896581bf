package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	referralService "pooltap.app/earnhub/internal/modules/referral/service"
	userDto "pooltap.app/earnhub/internal/modules/user/dto"
	userRepo "pooltap.app/earnhub/internal/modules/user/repository"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/telegram"
	"pooltap.app/earnhub/pkg/token"
)

const maxCodeAttempts = 5

// LeaderboardCleaner drops a user from cached ranked views.
type LeaderboardCleaner interface {
	RemoveUser(ctx context.Context, identifier string) error
}

// InitDataVerifier authenticates a platform sign-in payload.
type InitDataVerifier interface {
	Verify(initData string) (*telegram.WebAppUser, error)
}

// CountPublisher announces the current number of users.
type CountPublisher interface {
	PublishUserCount(ctx context.Context)
}

type UserService interface {
	// Register handles sign-in from the platform. The init data must verify;
	// calling it again for a known identifier returns the existing user.
	// Tokens issued here always carry the player scope.
	Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.AuthResponse, error)
	// AdminLogin issues an admin-scoped token for an admin with a password.
	AdminLogin(ctx context.Context, req userDto.AdminLoginRequest) (*userDto.AuthResponse, error)
	Get(ctx context.Context, identifier string) (*userDto.UserResponse, error)
	Update(ctx context.Context, identifier string, req userDto.UpdateUserRequest) (*userDto.UserResponse, error)
	Delete(ctx context.Context, identifier string) error
}

type userService struct {
	repo      userRepo.UserRepository
	referrals referralService.ReferralService
	verifier  InitDataVerifier
	cleaner   LeaderboardCleaner
	publisher CountPublisher
	log       *logger.Logger
	secret    string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewUserService(
	repo userRepo.UserRepository,
	referrals referralService.ReferralService,
	verifier InitDataVerifier,
	cleaner LeaderboardCleaner,
	publisher CountPublisher,
	secret string,
	tokenTTL time.Duration,
	log *logger.Logger,
) UserService {
	return &userService{
		repo:      repo,
		referrals: referrals,
		verifier:  verifier,
		cleaner:   cleaner,
		publisher: publisher,
		log:       log.With("component", "user"),
		secret:    secret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

func (s *userService) Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.AuthResponse, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("platform sign-in is not configured: %w", apperror.ErrDependencyUnavailable)
	}
	platformUser, err := s.verifier.Verify(req.InitData)
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		return nil, fmt.Errorf("platform sign-in is not configured: %w", apperror.ErrDependencyUnavailable)
	case err != nil:
		return nil, fmt.Errorf("%v: %w", err, apperror.ErrUnauthorized)
	}

	identifier := platformUser.Identifier()
	username := strings.TrimSpace(platformUser.DisplayName())
	if username == "" {
		username = identifier
	}

	user, created, err := s.findOrCreate(ctx, identifier, username)
	if err != nil {
		return nil, err
	}

	if created {
		if err := s.referrals.RegisterReferral(ctx, identifier, req.ReferralCode); err != nil {
			s.log.Warn("referral registration failed", "identifier", identifier, "error", err)
		} else if req.ReferralCode != "" {
			// pick up the referrer that was just attached
			if refreshed, err := s.repo.FindByIdentifier(ctx, identifier); err == nil {
				user = refreshed
			}
		}
		s.notifyCount(ctx)
	} else if user.Username != username {
		// the platform name is authoritative once the payload verified
		if err := s.repo.Update(ctx, identifier, map[string]interface{}{"username": username}); err != nil {
			return nil, err
		}
		user.Username = username
	}

	return s.authResponse(user, token.ScopePlayer, created)
}

func (s *userService) AdminLogin(ctx context.Context, req userDto.AdminLoginRequest) (*userDto.AuthResponse, error) {
	invalid := fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)

	user, err := s.repo.FindByIdentifier(ctx, req.Identifier)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() || user.PasswordHash == "" {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	s.log.Info("admin logged in", "identifier", user.Identifier)
	return s.authResponse(user, token.ScopeAdmin, false)
}

func (s *userService) authResponse(user *entity.User, scope string, created bool) (*userDto.AuthResponse, error) {
	now := s.now()
	signed, err := token.Issue(s.secret, user.Identifier, scope, s.tokenTTL, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &userDto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		Scope:       scope,
		Created:     created,
		User:        userDto.NewUserResponse(user, now),
	}, nil
}

func (s *userService) findOrCreate(ctx context.Context, identifier, username string) (*entity.User, bool, error) {
	existing, err := s.repo.FindByIdentifier(ctx, identifier)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := entity.NewReferralCode()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate referral code: %w", err)
		}

		user := &entity.User{
			Identifier:   identifier,
			Username:     username,
			Role:         entity.RolePlayer,
			ReferralCode: code,
			WeekStart:    entity.WeekWindowStart(s.now()),
		}
		err = s.repo.Create(ctx, user)
		if err == nil {
			s.log.Info("user registered", "identifier", identifier)
			return user, true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}

		// Either a concurrent registration won or the code collided.
		if existing, findErr := s.repo.FindByIdentifier(ctx, identifier); findErr == nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("could not allocate a unique referral code: %w", apperror.ErrConflict)
}

func (s *userService) Get(ctx context.Context, identifier string) (*userDto.UserResponse, error) {
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	resp := userDto.NewUserResponse(user, s.now())
	return &resp, nil
}

func (s *userService) Update(ctx context.Context, identifier string, req userDto.UpdateUserRequest) (*userDto.UserResponse, error) {
	fields := map[string]interface{}{}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, fmt.Errorf("username must not be blank: %w", apperror.ErrValidation)
		}
		fields["username"] = username
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}

	if len(fields) == 0 {
		return s.Get(ctx, identifier)
	}

	if err := s.repo.Update(ctx, identifier, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, identifier)
}

func (s *userService) Delete(ctx context.Context, identifier string) error {
	if err := s.repo.Delete(ctx, identifier); err != nil {
		return err
	}

	if s.cleaner != nil {
		if err := s.cleaner.RemoveUser(ctx, identifier); err != nil {
			s.log.Warn("failed to remove user from leaderboard cache", "identifier", identifier, "error", err)
		}
	}
	s.notifyCount(ctx)

	s.log.Info("user deleted", "identifier", identifier)
	return nil
}

func (s *userService) notifyCount(ctx context.Context) {
	if s.publisher != nil {
		s.publisher.PublishUserCount(ctx)
	}
}
