package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/config"
	"pooltap.app/earnhub/internal/middleware"
	"pooltap.app/earnhub/internal/scheduler"
	"pooltap.app/earnhub/pkg/database"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/storage"
	"pooltap.app/earnhub/pkg/telegram"

	completionHttp "pooltap.app/earnhub/internal/modules/completion/delivery/http"
	completionRepo "pooltap.app/earnhub/internal/modules/completion/repository"
	completionService "pooltap.app/earnhub/internal/modules/completion/service"

	leaderboardHttp "pooltap.app/earnhub/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "pooltap.app/earnhub/internal/modules/leaderboard/repository"
	leaderboardService "pooltap.app/earnhub/internal/modules/leaderboard/service"

	ledgerHttp "pooltap.app/earnhub/internal/modules/ledger/delivery/http"
	ledgerRepo "pooltap.app/earnhub/internal/modules/ledger/repository"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"

	moderationHttp "pooltap.app/earnhub/internal/modules/moderation/delivery/http"
	moderationService "pooltap.app/earnhub/internal/modules/moderation/service"

	realtimeHttp "pooltap.app/earnhub/internal/modules/realtime/delivery/http"
	realtimeService "pooltap.app/earnhub/internal/modules/realtime/service"

	referralHttp "pooltap.app/earnhub/internal/modules/referral/delivery/http"
	referralRepo "pooltap.app/earnhub/internal/modules/referral/repository"
	referralService "pooltap.app/earnhub/internal/modules/referral/service"

	statHttp "pooltap.app/earnhub/internal/modules/stat/delivery/http"
	statRepo "pooltap.app/earnhub/internal/modules/stat/repository"
	statService "pooltap.app/earnhub/internal/modules/stat/service"

	taskHttp "pooltap.app/earnhub/internal/modules/task/delivery/http"
	taskRepo "pooltap.app/earnhub/internal/modules/task/repository"
	taskService "pooltap.app/earnhub/internal/modules/task/service"

	userHttp "pooltap.app/earnhub/internal/modules/user/delivery/http"
	userRepo "pooltap.app/earnhub/internal/modules/user/repository"
	userService "pooltap.app/earnhub/internal/modules/user/service"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	scheduler *scheduler.Scheduler
	db        *gorm.DB
	log       *logger.Logger
}

// NewServer wires every module. redisClient and evidence may be nil.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, evidence storage.EvidenceStorage, log *logger.Logger) (*Server, error) {
	userRepository := userRepo.NewUserRepository(db)

	scoreCache := leaderboardRepo.NewScoreCache(redisClient)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), scoreCache, log)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	ledgerSvc := ledgerService.NewLedgerService(db, ledgerRepo.NewLedgerRepository(db), scoreCache, log)
	ledgerHandler := ledgerHttp.NewLedgerHandler(ledgerSvc)

	referralSvc := referralService.NewReferralService(db, referralRepo.NewReferralRepository(db), ledgerSvc, log)
	referralHandler := referralHttp.NewReferralHandler(referralSvc)

	realtimeSvc := realtimeService.NewRealtimeService(redisClient, userRepository, log)
	realtimeHandler := realtimeHttp.NewRealtimeHandler(realtimeSvc, cfg.AllowedOrigins, log)

	verifier := telegram.NewVerifier(cfg.TelegramBotToken, cfg.InitDataMaxAge)
	userSvc := userService.NewUserService(userRepository, referralSvc, verifier, scoreCache, realtimeSvc, cfg.JWTSecret, cfg.JWTTTL, log)
	userHandler := userHttp.NewUserHandler(userSvc)

	taskSvc := taskService.NewTaskService(taskRepo.NewTaskRepository(db), log)
	taskHandler := taskHttp.NewTaskHandler(taskSvc)

	completionRepository := completionRepo.NewCompletionRepository(db)
	completionSvc := completionService.NewCompletionService(db, completionRepository, taskSvc, ledgerSvc, evidence, cfg.MaxTaskRetries, log)
	completionHandler := completionHttp.NewCompletionHandler(completionSvc)

	moderationSvc := moderationService.NewModerationService(completionRepository, completionSvc, log)
	moderationHandler := moderationHttp.NewModerationHandler(moderationSvc)

	statSvc := statService.NewStatService(statRepo.NewStatRepository(db))
	statHandler := statHttp.NewStatHandler(statSvc)

	jobs := scheduler.New(log)
	if err := jobs.Register(scheduler.WeeklyResetJob(cfg.WeeklyResetCron, ledgerSvc)); err != nil {
		return nil, err
	}
	if err := jobs.Register(scheduler.RebuildLeaderboardJob(leaderboardSvc)); err != nil {
		return nil, err
	}
	jobsHandler := scheduler.NewHandler(jobs)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/api/ws/user-count"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// long-lived, so registered before the request timeout applies
	router.GET("/api/ws/user-count", realtimeHandler.UserCount)

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)
	adminOnly := authMiddleware.RequireAdmin()

	api := router.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))

	// Public routes (no auth required)
	api.POST("/users/register", userHandler.Register)
	api.POST("/admin/login", userHandler.AdminLogin)
	api.GET("/tasks", taskHandler.ListActive)
	api.GET("/tasks/:id", taskHandler.GetTask)
	api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	api.GET("/leaderboard/referrals", leaderboardHandler.GetReferralLeaderboard)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/users/me", userHandler.GetMe)
		protected.GET("/users/me/referrals", referralHandler.GetMyReferrals)

		protected.GET("/scores/me", ledgerHandler.GetMyScore)
		protected.GET("/scores/me/history", ledgerHandler.GetMyHistory)
		protected.POST("/scores",
			middleware.RateLimit(redisClient, "submit_score", cfg.RateLimitScore, log),
			ledgerHandler.SubmitScore)

		protected.POST("/tasks/:id/start", completionHandler.Start)
		protected.POST("/tasks/:id/return", completionHandler.MarkReturned)
		protected.POST("/tasks/:id/confirm", completionHandler.Confirm)
		protected.POST("/tasks/:id/evidence", completionHandler.SubmitEvidence)
		protected.POST("/tasks/:id/claim", completionHandler.Claim)
		protected.GET("/completions/me", completionHandler.ListMine)

		// Admin routes sharing the /users prefix
		protected.GET("/users", adminOnly, statHandler.ListUsers)
		protected.GET("/users/count", adminOnly, statHandler.CountUsers)
		protected.GET("/users/search", adminOnly, statHandler.SearchUsers)
		protected.GET("/users/:identifier/score", adminOnly, ledgerHandler.GetUserScore)
		protected.GET("/users/:identifier/referrals", adminOnly, referralHandler.GetReferrals)
		protected.PUT("/users/:identifier", adminOnly, userHandler.UpdateUser)
		protected.DELETE("/users/:identifier", adminOnly, userHandler.DeleteUser)

		adminGroup := protected.Group("/admin")
		adminGroup.Use(adminOnly)
		{
			adminGroup.GET("/tasks", taskHandler.ListAll)
			adminGroup.POST("/tasks", taskHandler.CreateTask)
			adminGroup.PUT("/tasks/:id", taskHandler.UpdateTask)
			adminGroup.DELETE("/tasks/:id", taskHandler.DeleteTask)

			adminGroup.GET("/moderation", moderationHandler.ListPending)
			adminGroup.POST("/moderation/decide", moderationHandler.BulkDecide)
			adminGroup.POST("/moderation/:id/decide", moderationHandler.Decide)

			adminGroup.GET("/jobs", jobsHandler.ListJobs)
			adminGroup.POST("/jobs/:name/run", jobsHandler.RunJob)
		}
	}

	return &Server{
		engine:    router,
		scheduler: jobs,
		db:        db,
		log:       log.With("component", "server"),
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.scheduler.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.scheduler.Stop(shutdownCtx)
	return err
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
