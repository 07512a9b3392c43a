// Package main runs the booking and back-office HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramsoftware/website-backend/config"
	"github.com/ramsoftware/website-backend/internal/auth"
	"github.com/ramsoftware/website-backend/internal/booking"
	"github.com/ramsoftware/website-backend/internal/bookings"
	"github.com/ramsoftware/website-backend/internal/content"
	"github.com/ramsoftware/website-backend/internal/media"
	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/internal/preferences"
	"github.com/ramsoftware/website-backend/internal/realtime"
	"github.com/ramsoftware/website-backend/internal/roster"
	"github.com/ramsoftware/website-backend/pkg/apiclient"
	"github.com/ramsoftware/website-backend/pkg/database"
	"github.com/ramsoftware/website-backend/pkg/kvstore"
	"github.com/ramsoftware/website-backend/pkg/queue"
	"github.com/ramsoftware/website-backend/pkg/response"
	"github.com/ramsoftware/website-backend/pkg/scheduler"
	"github.com/ramsoftware/website-backend/pkg/storage"
)

const redisKeyPrefix = "ramsoftware:"

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis backs drafts, preferences, the notification queue and realtime
	// fan-out. Without it everything stays in this process.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = kvstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory storage", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		store    kvstore.Store = kvstore.NewMemory()
		hub      *realtime.Hub
		notifier bookings.Notifier
	)
	if rdb != nil {
		store = kvstore.NewRedis(rdb, redisKeyPrefix, cfg.Redis.DraftTTL)
		hub = realtime.NewHub(logger, realtime.NewRedisRelay(rdb, realtime.DefaultRelayChannel, logger))
		notifier = queue.NewQueue(rdb, logger)
	} else {
		hub = realtime.NewHub(logger, nil)
		logger.Warn("booking notifications disabled (no redis queue)")
	}
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go hub.Run(relayCtx)
	hub.SetPresenceHandler(func(room string, count int) {
		logger.Debug("room presence", zap.String("room", room), zap.Int("clients", count))
	})

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}
	var (
		uploader   booking.Uploader
		mediaStore media.Storage
	)

	// Bookings (server side of the bookings resource)
	bookingRepo := bookings.NewRepository(pool)
	bookingService := bookings.NewService(bookingRepo, notifier, hub, logger)
	if s3Client != nil {
		uploader = s3Client
		mediaStore = s3Client
		bookingService.SetAttachmentSigner(s3Client)
	}
	bookingsHandler := bookings.NewHandler(bookingService, logger)

	// Booking form sessions
	var submitter booking.Submitter
	switch cfg.Booking.SubmitMode {
	case config.SubmitHTTP:
		submitter = apiclient.NewHTTP(cfg.Booking.APIURL, cfg.Booking.APITimeout, logger)
	case config.SubmitStub:
		submitter = apiclient.NewStub(cfg.Booking.StubDelay)
	default:
		submitter = bookings.NewLocalSubmitter(bookingService)
	}
	logger.Info("booking submission", zap.String("mode", cfg.Booking.SubmitMode))

	ticker := scheduler.NewTicker(logger)
	loc := cfg.Booking.Location()
	blocked := cfg.Booking.Blocked()
	sessions := booking.NewSessions(func(ctx context.Context, clientID string) *booking.Wizard {
		return booking.New(ctx, booking.Options{
			Drafts:           kvstore.NewScoped(store, clientID),
			Submitter:        submitter,
			Scheduler:        ticker,
			AutosaveInterval: cfg.Booking.AutosaveInterval,
			Now:              func() time.Time { return time.Now().In(loc) },
			Blocked:          blocked,
			Logger:           logger.With(zap.String("client_id", clientID)),
		})
	}, booking.SessionOptions{
		IdleTimeout: cfg.Booking.SessionIdle,
		MaxOpen:     cfg.Booking.MaxSessions,
		Scheduler:   ticker,
	}, logger)
	bookingHandler := booking.NewHandler(sessions, uploader, logger)

	// Team roster (re-rendered live on /admin/ws)
	team := roster.New(roster.SeedMembers(), roster.Options{
		Logger: logger,
		OnChange: func(ch roster.Change) {
			hub.Publish(realtime.RoomAdmin, realtime.EventRosterChanged, ch)
		},
	})
	rosterHandler := roster.NewHandler(team, logger)

	contentHandler := content.NewHandler(content.NewRepository(pool), hub, logger)
	mediaHandler := media.NewHandler(mediaStore, hub, cfg.AWS.PresignExpireMinutes*60, logger)
	preferencesHandler := preferences.NewHandler(store, logger)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	adminHash := cfg.Admin.PasswordHash
	if adminHash == "" && cfg.Admin.Password != "" {
		adminHash, err = auth.HashPassword(cfg.Admin.Password)
		if err != nil {
			logger.Fatal("hash admin password", zap.Error(err))
		}
	}
	if adminHash == "" {
		logger.Warn("no admin password configured; back-office login disabled")
	}
	authHandler := auth.NewHandler([]auth.Account{{
		Email:        cfg.Admin.Email,
		PasswordHash: adminHash,
		Role:         cfg.Admin.Role,
	}}, jwtService, logger)

	tokenCheck := func(token string) (realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return realtime.Identity{}, err
		}
		return realtime.Identity{Email: claims.Email, Role: claims.Role}, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Visitor-facing: booking form and preferences, scoped by X-Client-ID
	visitor := router.Group("", middleware.ClientID())
	bookingHandler.Register(visitor)
	preferencesHandler.Register(visitor)

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Site API
	api := router.Group("/api")
	api.POST("/bookings", bookingsHandler.Create)
	api.GET("/content", contentHandler.List)
	api.GET("/content/:section", contentHandler.Get)

	adminOnly := []gin.HandlerFunc{middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAdmin)}
	protected := api.Group("", adminOnly...)
	{
		protected.GET("/bookings", bookingsHandler.List)
		protected.GET("/bookings/:id", bookingsHandler.Get)
		protected.GET("/bookings/:id/attachments", bookingsHandler.Attachments)
		protected.PUT("/bookings/:id", bookingsHandler.UpdateStatus)
		protected.DELETE("/bookings/:id", bookingsHandler.Delete)

		protected.PUT("/content/:section", contentHandler.Save)

		protected.POST("/media", mediaHandler.Upload)
		protected.POST("/media/upload-url", mediaHandler.UploadURL)
		protected.DELETE("/media/*key", mediaHandler.Delete)

		protected.PUT("/users/:id", rosterHandler.UpdateRole)
	}

	// Back office: team roster
	admin := router.Group("/admin", adminOnly...)
	{
		admin.GET("/team", rosterHandler.List)
		admin.POST("/team", rosterHandler.Create)
		admin.GET("/team/:id", rosterHandler.Get)
		admin.PUT("/team/:id", rosterHandler.Update)
		admin.DELETE("/team/:id", rosterHandler.Delete)
		admin.POST("/team/selection", rosterHandler.Select)
		admin.POST("/team/selection/all", rosterHandler.SelectAll)
		admin.DELETE("/team/selection", rosterHandler.ClearSelection)
		admin.POST("/team/bulk", rosterHandler.Bulk)
		admin.GET("/permissions", rosterHandler.Permissions)
		admin.GET("/activity", rosterHandler.Activity)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/admin/ws", realtime.ServeWs(hub, realtime.RoomAdmin, tokenCheck, originList(cfg.Server.CORSAllowedOrigins), logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	stopRelay()
	// Final save of every open booking form.
	sessions.CloseAll(shutdownCtx)
	logger.Info("server stopped")
}

func originList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
