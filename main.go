package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"worth-watch/config"
	"worth-watch/models"
	"worth-watch/providers"
	"worth-watch/providers/guardian"
	"worth-watch/providers/nyt"
	"worth-watch/providers/omdb"
	"worth-watch/providers/serper"
	"worth-watch/providers/tmdb"
	"worth-watch/services"
	"worth-watch/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the title insert race depends on.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Title{}, &models.Review{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Providers
	searchClient := serper.NewClient(cfg, logging)
	searchProviders := []providers.SearchProvider{
		serper.NewCritic(searchClient),
		serper.NewReddit(searchClient),
		serper.NewForum(searchClient),
		guardian.NewFetcher(cfg, logging),
		nyt.NewFetcher(cfg, logging),
	}
	ratings := omdb.NewFetcher(cfg, logging)
	metadata := tmdb.NewFetcher(cfg, logging)

	// Setup Services
	archive, err := storage.NewArchive(cfg)
	if err != nil {
		logging.Fatal("Archive client creation failed", zap.Error(err))
	}
	if archive == nil {
		logging.Info("Corpus archiving disabled")
	}
	progress := services.NewProgressTracker()
	pipeline := services.NewPipeline(cfg, logging, db, metadata,
		services.NewAggregator(searchProviders, ratings, logging),
		services.NewRetriever(cfg, logging),
		services.NewSynthesizer(cfg, logging),
		progress, archive)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupSearchRoutes(router, cfg, db, metadata, pipeline, progress, logging)
	setupReviewRoutes(router, db, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.SweepSchedule, func() {
		logging.Info("Running freshness sweep...")
		pipeline.RefreshStale(context.Background())
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      time.Duration(cfg.StreamTimeoutSeconds+10) * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupSearchRoutes(router *gin.Engine, cfg *config.Config, db *gorm.DB, metadata *tmdb.Fetcher,
	pipeline *services.Pipeline, progress *services.ProgressTracker, log *zap.Logger) {

	rg := router.Group("/search")

	// Title lookup against the metadata provider, for the client's pick list.
	rg.GET("/", func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
			return
		}
		results, err := metadata.SearchMulti(c.Request.Context(), q)
		if err != nil {
			log.Error("Metadata search failed", zap.String("query", q), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "metadata provider unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	})

	// Kick off (or short-circuit) a review generation for one title.
	rg.POST("/generate/:id", func(c *gin.Context) {
		tmdbID, ok := parseTitleID(c)
		if !ok {
			return
		}
		mediaType := c.DefaultQuery("type", "movie")
		if mediaType != "movie" && mediaType != "tv" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be movie or tv"})
			return
		}

		// A fresh cached review answers immediately.
		if review, title := findReview(db, tmdbID); review != nil {
			if !services.IsReviewStale(review, title, time.Now()) {
				c.JSON(http.StatusOK, gin.H{"status": "done", "review": review, "title": title})
				return
			}
		}

		if p, running := progress.Get(tmdbID); running {
			c.JSON(http.StatusAccepted, gin.H{"status": "running", "progress": p})
			return
		}

		go func() {
			if _, err := pipeline.GenerateReview(context.Background(), tmdbID, mediaType); err != nil {
				log.Error("Review generation failed",
					zap.Uint("tmdb_id", tmdbID), zap.Error(err))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
	})

	// Poll the progress tracker. A missing key with a stored review means
	// done; a missing key without one means not started.
	rg.GET("/status/:id", func(c *gin.Context) {
		tmdbID, ok := parseTitleID(c)
		if !ok {
			return
		}
		if p, running := progress.Get(tmdbID); running {
			c.JSON(http.StatusOK, gin.H{"status": "running", "progress": p})
			return
		}
		if review, title := findReview(db, tmdbID); review != nil {
			c.JSON(http.StatusOK, gin.H{"status": "done", "review": review, "title": title})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "not_started"})
	})

	// Push stage updates until the review lands or the wall clock runs out.
	// The background run keeps going after a timeout; only the stream gives up.
	rg.GET("/stream/:id", func(c *gin.Context) {
		tmdbID, ok := parseTitleID(c)
		if !ok {
			return
		}
		deadline := time.Now().Add(time.Duration(cfg.StreamTimeoutSeconds) * time.Second)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		c.Stream(func(w io.Writer) bool {
			if time.Now().After(deadline) {
				c.SSEvent("error", gin.H{"error": "timed out waiting for review"})
				return false
			}
			if p, running := progress.Get(tmdbID); running {
				c.SSEvent("progress", p)
				return waitTick(c.Request.Context(), ticker)
			}
			if review, title := findReview(db, tmdbID); review != nil {
				c.SSEvent("done", gin.H{"review": review, "title": title})
				return false
			}
			c.SSEvent("error", gin.H{"error": "no generation in flight"})
			return false
		})
	})
}

func setupReviewRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/reviews")

	rg.GET("/", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 200 {
			limit = 50
		}
		query := db.Model(&models.Review{}).Order("generated_at desc").Limit(limit)
		if verdict := c.Query("verdict"); verdict != "" {
			query = query.Where("verdict = ?", verdict)
		}
		var reviews []models.Review
		if err := query.Find(&reviews).Error; err != nil {
			log.Error("Database query for reviews failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, reviews)
	})

	rg.GET("/:id", func(c *gin.Context) {
		tmdbID, ok := parseTitleID(c)
		if !ok {
			return
		}
		review, title := findReview(db, tmdbID)
		if review == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no review for this title"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"review": review, "title": title})
	})
}

func parseTitleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return 0, false
	}
	return uint(id), true
}

func findReview(db *gorm.DB, tmdbID uint) (*models.Review, *models.Title) {
	var title models.Title
	if err := db.Preload("Review").Where("tmdb_id = ?", tmdbID).First(&title).Error; err != nil {
		return nil, nil
	}
	return title.Review, &title
}

func waitTick(ctx context.Context, ticker *time.Ticker) bool {
	select {
	case <-ticker.C:
		return true
	case <-ctx.Done():
		return false
	}
}
