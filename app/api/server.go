package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-AI-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.GetStats)
	r.GET("/digest.rss", handler.GetDigestFeed)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/feeds", handler.ListFeeds)
		api.POST("/feeds", handler.AddFeed)
		api.POST("/feeds/refresh", handler.RefreshAll)
		api.DELETE("/feeds/:id", handler.DeleteFeed)
		api.POST("/feeds/:id/refresh", handler.RefreshFeed)

		api.GET("/articles", handler.ListArticles)
		api.GET("/articles/:id", handler.GetArticle)
		api.POST("/articles/:id/extract", handler.ExtractArticle)
		api.POST("/articles/:id/summary", handler.SummarizeArticle)
		api.POST("/articles/:id/audio", handler.GenerateArticleAudio)

		api.GET("/bookmarks", handler.ListBookmarks)
		api.DELETE("/bookmarks", handler.ClearBookmarks)
		api.PUT("/bookmarks/:id", handler.AddBookmark)
		api.DELETE("/bookmarks/:id", handler.RemoveBookmark)

		api.POST("/summaries/combined", handler.CombinedSummary)
		api.POST("/summaries/audio", handler.GenerateAudio)

		api.GET("/audio/:name", handler.GetAudio)

		api.GET("/settings", handler.ListSettings)
		api.GET("/settings/:key", handler.GetSetting)
		api.PUT("/settings/:key", handler.PutSetting)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "RSS Digest",
			"version":     handler.version,
			"description": "RSS/Atom aggregator with full-text extraction, AI summaries and speech",
			"endpoints": map[string]string{
				"health":    "/health",
				"stats":     "/stats",
				"digest":    "/digest.rss",
				"metrics":   "/metrics",
				"feeds":     "/api/feeds",
				"articles":  "/api/articles",
				"bookmarks": "/api/bookmarks",
				"summary":   "/api/summaries/combined (POST)",
				"audio":     "/api/summaries/audio (POST)",
				"settings":  "/api/settings",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
				"ai_key_header": "X-AI-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as a Bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiAccessKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
