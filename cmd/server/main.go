package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cavision/config"
	"cavision/controllers"
	"cavision/db"
	"cavision/internal/cache"
	"cavision/internal/llm"
	"cavision/internal/logger"
	"cavision/internal/observability"
	"cavision/internal/storage"
	"cavision/internal/transcript"
	"cavision/middlewares"
	"cavision/routes"
	"cavision/services"
	"cavision/utils"
	"cavision/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type handlers struct {
	auth        *controllers.AuthController
	quiz        *controllers.QuizController
	chat        *controllers.ChatController
	chatSocket  *websocket.ChatHandler
	profile     *controllers.ProfileController
	transcripts *controllers.TranscriptController
}

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		// The logger depends on config, so this one goes to stderr.
		os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		os.Stderr.WriteString("Failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	utils.SetJWTSecret(cfg.JWT.Secret)
	utils.SetJWTExpiry(cfg.JWT.Expiry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, observability.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Server.Mode,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})

	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	log.Info("Connected to MongoDB")

	rdb, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
	}

	var sessions cache.SessionStore
	if rdb != nil {
		sessions = cache.NewRedisSessionStore(rdb, time.Duration(cfg.Quiz.SessionTTLMinutes)*time.Minute)
		log.Info("Quiz sessions stored in Redis", "addr", cfg.Redis.Addr)
	} else {
		sessions = cache.NewMemorySessionStore()
		log.Warn("Redis not configured, quiz sessions and transcripts are kept in memory and rate limiting is off")
	}

	model, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create model", "provider", cfg.LLM.Provider, "error", err)
	}
	log.Info("Generative model ready", "model", model.Name())

	profileStore := services.NewMongoProfileStore(db.UsersCollection)
	fetcher := transcript.NewFetcher(
		cache.NewTextCache(rdb, "transcript:", time.Duration(cfg.Transcript.CacheTTLMinutes)*time.Minute),
		cfg.Transcript.MaxChars,
		log.With("service", "TranscriptFetcher"),
	)

	var identity services.IdentityProvider
	if cfg.Cognito.AppClientId != "" {
		cognito, err := services.NewCognito(ctx, cfg.Cognito.Region, cfg.Cognito.AppClientId, cfg.Cognito.AppClientSecret)
		if err != nil {
			log.Fatal("Failed to initialize Cognito", "error", err)
		}
		identity = cognito
	} else {
		log.Warn("Cognito not configured, email sign-in is disabled")
	}

	var google services.GoogleTokenVerifier
	if cfg.Google.ClientId != "" {
		verifier, err := services.NewGoogleVerifier(ctx, cfg.Google.ClientId)
		if err != nil {
			log.Fatal("Failed to initialize Google sign-in", "error", err)
		}
		google = verifier
	} else {
		log.Warn("Google client id not configured, Google sign-in is disabled")
	}

	var avatars services.AvatarStore
	var bucket *storage.AvatarBucket
	if cfg.Storage.AvatarBucket != "" {
		bucket, err = storage.NewAvatarBucket(ctx, log, cfg.Storage.AvatarBucket, cfg.Storage.PublicBaseURL)
		if err != nil {
			log.Fatal("Failed to initialize avatar storage", "error", err)
		}
		avatars = bucket
	} else {
		log.Warn("Avatar bucket not configured, profile picture upload is disabled")
	}

	limiter := cache.NewRateLimiter(rdb, "generate", cfg.Quiz.GenerationsPerHour, time.Hour)
	chat := services.NewChatService(model, fetcher, log)

	h := handlers{
		auth:        controllers.NewAuthController(services.NewAuthService(identity, google, profileStore, log)),
		quiz:        controllers.NewQuizController(services.NewGeneratorService(model, limiter, log), services.NewQuizService(sessions, profileStore, log), cfg.Quiz.MaxUploadBytes),
		chat:        controllers.NewChatController(chat),
		chatSocket:  websocket.NewChatHandler(chat, cfg.Server.AllowedOrigins, log),
		profile:     controllers.NewProfileController(services.NewProfileService(profileStore, avatars, log), cfg.Quiz.MaxUploadBytes),
		transcripts: controllers.NewTranscriptController(fetcher),
	}

	router := setupRouter(cfg, log, h)
	port := strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", port, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	if bucket != nil {
		if err := bucket.Close(); err != nil {
			log.Warn("Failed to close storage client", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Warn("Failed to disconnect from MongoDB", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", "error", err)
	}
}

func setupRouter(cfg *config.Config, log *logger.Logger, h handlers) *gin.Engine {
	if isRelease(cfg.Server.Mode) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middlewares.HeaderRequestID},
		AllowCredentials: true,
	}))
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	router.Use(middlewares.RequestID(), middlewares.RequestLogger(log))

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	public := router.Group("/")
	routes.SetupAuthRoutes(public, h.auth)
	routes.SetupSyllabusRoutes(public)

	// Protected routes (JWT auth)
	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		routes.SetupQuizRoutes(auth, h.quiz)
		routes.SetupChatRoutes(auth, h.chat, h.chatSocket.Serve)
		routes.SetupProfileRoutes(auth, h.profile)
		routes.SetupTranscriptRoutes(auth, h.transcripts)
	}

	return router
}

func isRelease(mode string) bool {
	switch strings.ToLower(mode) {
	case "prod", "production", "release":
		return true
	}
	return false
}
