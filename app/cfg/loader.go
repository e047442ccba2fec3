package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./rss_digest.db" description:"SQLite database file"`
	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file with feeds to register on startup (optional)"`
	AudioDir  string `long:"audio-dir" env:"AUDIO_DIR" default:"./audio" description:"Directory for generated audio files"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL used for links in the digest feed (optional)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"RSS Digest/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	ExtractTimeout  int    `long:"extract-timeout" env:"EXTRACT_TIMEOUT" default:"30" description:"Article extraction timeout in seconds"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Background refresh interval in seconds (0 disables)"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of feeds refreshed concurrently"`
	AutoExtract     bool   `long:"auto-extract" env:"AUTO_EXTRACT" description:"Extract full text for new articles in the background"`

	// AI text service
	AIBaseURL       string  `long:"ai-base-url" env:"AI_BASE_URL" default:"https://api.openai.com/v1" description:"Base URL of an OpenAI-compatible chat completions API"`
	AIModel         string  `long:"ai-model" env:"AI_MODEL" default:"gpt-4o-mini" description:"Model used for summaries"`
	AIAPIKey        string  `long:"ai-api-key" env:"AI_API_KEY" description:"Default AI credential, overridable per request with X-AI-Key"`
	AITimeout       int     `long:"ai-timeout" env:"AI_TIMEOUT" default:"60" description:"AI request timeout in seconds"`
	AIRatePerSecond float64 `long:"ai-rate" env:"AI_RATE" default:"1" description:"Maximum AI requests per second (0 disables limiting)"`
	ContextBudget   int     `long:"context-budget" env:"CONTEXT_BUDGET" default:"24000" description:"Maximum characters of article text sent to the AI service"`
	SummaryCache    int     `long:"summary-cache" env:"SUMMARY_CACHE" default:"32" description:"Number of combined summaries kept in memory"`

	// Speech service
	SpeechBaseURL string `long:"speech-base-url" env:"SPEECH_BASE_URL" default:"https://api.openai.com/v1" description:"Base URL of an OpenAI-compatible speech API"`
	SpeechModel   string `long:"speech-model" env:"SPEECH_MODEL" default:"tts-1" description:"Speech synthesis model"`
	SpeechVoice   string `long:"speech-voice" env:"SPEECH_VOICE" default:"alloy" description:"Speech synthesis voice"`
	SpeechAPIKey  string `long:"speech-api-key" env:"SPEECH_API_KEY" description:"Default speech credential (falls back to the AI credential)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments (os.Args when nil) and environment.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		FeedsFile:       raw.FeedsFile,
		AudioDir:        raw.AudioDir,
		Port:            raw.Port,
		BaseURL:         raw.BaseURL,
		APIAccessKey:    raw.APIAccessKey,
		UserAgent:       raw.UserAgent,
		FetchTimeout:    raw.FetchTimeout,
		ExtractTimeout:  raw.ExtractTimeout,
		RefreshInterval: raw.RefreshInterval,
		WorkerCount:     raw.WorkerCount,
		AutoExtract:     raw.AutoExtract,
		AIBaseURL:       raw.AIBaseURL,
		AIModel:         raw.AIModel,
		AIAPIKey:        raw.AIAPIKey,
		AITimeout:       raw.AITimeout,
		AIRatePerSecond: raw.AIRatePerSecond,
		ContextBudget:   raw.ContextBudget,
		SummaryCache:    raw.SummaryCache,
		SpeechBaseURL:   raw.SpeechBaseURL,
		SpeechModel:     raw.SpeechModel,
		SpeechVoice:     raw.SpeechVoice,
		SpeechAPIKey:    cmp.Or(raw.SpeechAPIKey, raw.AIAPIKey),
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(c *Cfg) error {
	nonNegative := map[string]int{
		"fetch timeout":    c.FetchTimeout,
		"extract timeout":  c.ExtractTimeout,
		"refresh interval": c.RefreshInterval,
		"ai timeout":       c.AITimeout,
		"context budget":   c.ContextBudget,
		"summary cache":    c.SummaryCache,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.AIRatePerSecond < 0 {
		return fmt.Errorf("ai rate must be non-negative")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
