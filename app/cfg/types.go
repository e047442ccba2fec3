package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath    string
	FeedsFile string
	AudioDir  string

	// HTTP API
	Port         string
	BaseURL      string
	APIAccessKey string

	// Pipeline
	UserAgent       string
	FetchTimeout    int // seconds
	ExtractTimeout  int // seconds
	RefreshInterval int // seconds, 0 disables the scheduler
	WorkerCount     int
	AutoExtract     bool

	// AI text service
	AIBaseURL       string
	AIModel         string
	AIAPIKey        string
	AITimeout       int // seconds
	AIRatePerSecond float64
	ContextBudget   int // runes
	SummaryCache    int

	// Speech service
	SpeechBaseURL string
	SpeechModel   string
	SpeechVoice   string
	SpeechAPIKey  string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) FetchTimeoutDuration() time.Duration {
	return seconds(c.FetchTimeout, 30)
}

func (c *Cfg) ExtractTimeoutDuration() time.Duration {
	return seconds(c.ExtractTimeout, 30)
}

func (c *Cfg) AITimeoutDuration() time.Duration {
	return seconds(c.AITimeout, 60)
}

func (c *Cfg) RefreshIntervalDuration() time.Duration {
	if c.RefreshInterval <= 0 {
		return 0
	}
	return time.Duration(c.RefreshInterval) * time.Second
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
