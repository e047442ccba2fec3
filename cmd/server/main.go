package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/api"
	"github.com/lysyi3m/rss-digest/app/cfg"
	"github.com/lysyi3m/rss-digest/app/content"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/feedlist"
	"github.com/lysyi3m/rss-digest/app/reader"
	"github.com/lysyi3m/rss-digest/app/speech"
	"github.com/lysyi3m/rss-digest/app/summary"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Digest server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)
	bookmarkRepo := database.NewBookmarkRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	httpClient := &http.Client{}

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.FetchTimeoutDuration())
	ingester := feed.NewIngester(articleRepo)
	extractor := content.NewExtractor(httpClient, appCfg.UserAgent, appCfg.ExtractTimeoutDuration())

	aiClient := ai.NewClient(ai.Config{
		BaseURL:       appCfg.AIBaseURL,
		Model:         appCfg.AIModel,
		Timeout:       appCfg.AITimeoutDuration(),
		RatePerSecond: appCfg.AIRatePerSecond,
	})
	summarizer := summary.NewSummarizer(aiClient, appCfg.ContextBudget, appCfg.SummaryCache)

	synthesizer := speech.NewSynthesizer(speech.Config{
		BaseURL: appCfg.SpeechBaseURL,
		Model:   appCfg.SpeechModel,
		Voice:   appCfg.SpeechVoice,
	})
	audioStore, err := speech.NewAudioStore(appCfg.AudioDir)
	if err != nil {
		return fmt.Errorf("failed to prepare audio directory: %w", err)
	}

	service := reader.NewService(reader.Deps{
		FeedRepo:     feedRepo,
		ArticleRepo:  articleRepo,
		BookmarkRepo: bookmarkRepo,
		SettingsRepo: settingsRepo,
		Fetcher:      fetcher,
		Ingester:     ingester,
		Extractor:    extractor,
		Summarizer:   summarizer,
		Synthesizer:  synthesizer,
		AudioStore:   audioStore,
		Workers:      appCfg.WorkerCount,
	})

	feedList := feedlist.NewList(appCfg.FeedsFile)
	if err := feedList.Run(); err != nil {
		slog.Warn("Failed to load feed list", "path", appCfg.FeedsFile, "error", err)
	} else {
		slog.Info("Feed list loaded", "path", appCfg.FeedsFile, "feeds", feedList.Count())
	}

	if interval := appCfg.RefreshIntervalDuration(); interval > 0 {
		scheduler := tasks.NewScheduler(service, feedList, interval, appCfg.WorkerCount, appCfg.AutoExtract)
		scheduler.Start()
		defer scheduler.Stop()
	} else if feedList.Count() > 0 {
		service.SyncFeeds(context.Background(), feedList.Entries())
	}

	handler := api.NewHandler(service, audioStore, appCfg.AIAPIKey, appCfg.SpeechAPIKey, appCfg.BaseURL, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("RSS Digest server shutdown complete")
	return serveErr
}
