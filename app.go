package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dramafeed/internal/config"
	"dramafeed/internal/database"
	"dramafeed/internal/handlers"
	"dramafeed/internal/logging"
	"dramafeed/internal/media"
	"dramafeed/internal/middleware"
	"dramafeed/internal/services"
	"dramafeed/internal/storage"
	"dramafeed/internal/uiconfig"
	ws "dramafeed/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app owns every long-lived dependency of the server
type app struct {
	db          *sqlx.DB
	store       storage.Store
	sessions    *services.SessionStore
	rateLimiter *middleware.RateLimiter
	router      *gin.Engine
}

// pipeline lets tests swap the ffmpeg-backed trimmer and frame extractor
type pipeline struct {
	trimmer services.Trimmer
	frames  services.FrameExtractor
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	tools := media.NewTools(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)
	if !tools.Available() {
		logger := logging.WithComponent("media")
		logger.Warn().
			Str("ffmpeg", cfg.Media.FFmpegPath).
			Str("ffprobe", cfg.Media.FFprobePath).
			Msg("ffmpeg tools not found; ingestion will fail until they are installed")
	}
	return newAppWithPipeline(ctx, cfg, pipeline{
		trimmer: media.NewTranscoder(tools),
		frames:  media.NewThumbnailExtractor(tools),
	})
}

func newAppWithPipeline(ctx context.Context, cfg *config.Config, p pipeline) (*app, error) {
	logger := logging.WithComponent("app")

	// Initialize database connection
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Run database migrations
	if err := database.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	// Admin tokens are only checked when Firebase is configured
	var verifier middleware.AdminVerifier
	if cfg.FirebaseProjectID != "" {
		firebaseService, err := services.NewFirebaseService(ctx, cfg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize firebase: %w", err)
		}
		verifier = firebaseService
		logger.Info().Str("project", cfg.FirebaseProjectID).Msg("🔥 Firebase admin verification enabled")
	}

	chrome, err := uiconfig.Load(cfg.UIConfigPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load ui config: %w", err)
	}

	// Initialize services
	catalog := services.NewCatalogService(db, cfg.TitlePolicy)
	ingest := services.NewIngestService(catalog, store, p.trimmer, p.frames, services.IngestOptions{
		ScratchDir:      cfg.ScratchDir,
		MaxUploadBytes:  cfg.Media.MaxUploadBytes,
		MediaTimeout:    cfg.Media.Timeout,
		ThumbnailOffset: cfg.Media.ThumbnailOffset,
		Concurrency:     cfg.Media.IngestConcurrency,
	})
	sessions := services.NewSessionStore(cfg.SessionIdleTTL)
	playback := services.NewPlaybackService(catalog, store, sessions)
	browser := services.NewBrowserService(catalog, store)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketPlaybackHandler(playback, ws.NewManager(), cfg.AllowedOrigins)
	h := routeHandlers{
		episodes: handlers.NewEpisodeHandler(catalog, store),
		browse:   handlers.NewBrowseHandler(browser, chrome),
		playback: handlers.NewPlaybackHandler(playback),
		upload:   handlers.NewUploadHandler(ingest, cfg.Media.MaxUploadBytes, wsHandler),
		auth:     handlers.NewAuthHandler(),
		ws:       wsHandler,
	}

	rateLimiter := middleware.NewRateLimiter(5*time.Minute, 10*time.Minute)
	router := setupRouter(cfg, rateLimiter)

	// Health check with WebSocket info
	router.GET("/health", func(c *gin.Context) {
		dbStats := database.Stats(db)
		healthy := database.Health(c.Request.Context(), db) == nil
		code, status := http.StatusOK, "healthy"
		if !healthy {
			code, status = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(code, gin.H{
			"status":          status,
			"database":        healthy,
			"storage":         store.Backend(),
			"sessions":        sessions.Len(),
			"websocket_stats": wsHandler.GetStats(),
			"database_stats": gin.H{
				"open_connections": dbStats.OpenConnections,
				"in_use":           dbStats.InUse,
				"idle":             dbStats.Idle,
			},
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupRoutes(router, cfg, verifier, h)

	return &app{
		db:          db,
		store:       store,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		router:      router,
	}, nil
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageR2:
		r2, err := storage.NewR2Store(cfg.R2Config)
		if err != nil {
			return nil, err
		}
		return r2, nil
	default:
		local, err := storage.NewLocalStore(cfg.MediaDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
}

// Close releases background workers and the database
func (a *app) Close() {
	a.sessions.Close()
	a.rateLimiter.Close()
	if err := a.db.Close(); err != nil {
		logger := logging.WithComponent("app")
		logger.Error().Err(err).Msg("Failed to close database")
	}
}

func setupRouter(cfg *config.Config, rateLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Video bodies are already compressed
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".mp4", ".jpg", ".jpeg"}),
		gzip.WithExcludedPathsRegexs([]string{`/media$`, `/thumbnail$`, `/ws/`})))

	router.Use(middleware.RateLimit(rateLimiter))

	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization",
			"Range", "Cache-Control", "If-None-Match", "If-Modified-Since",
			middleware.AdminSecretHeader, middleware.RequestIDHeader,
		},
		ExposeHeaders: []string{
			"Content-Length", "Content-Range", "Accept-Ranges",
			"Cache-Control", "Last-Modified", "ETag",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
			middleware.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	return router
}

type routeHandlers struct {
	episodes *handlers.EpisodeHandler
	browse   *handlers.BrowseHandler
	playback *handlers.PlaybackHandler
	upload   *handlers.UploadHandler
	auth     *handlers.AuthHandler
	ws       *handlers.WebSocketPlaybackHandler
}

func setupRoutes(router *gin.Engine, cfg *config.Config, verifier middleware.AdminVerifier, h routeHandlers) {
	api := router.Group("/api/v1")

	// ===============================
	// WEBSOCKET ENDPOINTS
	// ===============================
	api.GET("/ws/playback", h.ws.HandleWebSocket)

	// ===============================
	// PUBLIC ROUTES (CATALOG CONTENT)
	// ===============================
	public := api.Group("")
	{
		public.GET("/episodes", h.episodes.ListEpisodes)
		public.GET("/episodes/:episodeId", h.episodes.GetEpisode)
		public.GET("/episodes/:episodeId/media", h.episodes.ServeMedia)
		public.GET("/episodes/:episodeId/thumbnail", h.episodes.ServeThumbnail)

		public.GET("/browse", h.browse.ListForDisplay)
		public.GET("/ui/tabs", h.browse.GetTabs)
	}

	// ===============================
	// PLAYBACK (COOKIE-KEYED VIEWERS)
	// ===============================
	playback := api.Group("/playback")
	playback.Use(middleware.ViewerIdentity())
	{
		playback.GET("", h.playback.Current)
		playback.POST("/next", h.playback.Next)
		playback.POST("/previous", h.playback.Previous)
		playback.POST("/select", h.playback.Select)
	}

	// ===============================
	// ADMIN ROUTES
	// ===============================
	admin := api.Group("/admin")
	admin.Use(middleware.AdminOnly(cfg.AdminSecret, verifier))
	{
		admin.GET("/verify", h.auth.VerifyAdmin)
		admin.POST("/episodes", h.upload.IngestEpisode)
	}
}
