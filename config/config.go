package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Search    SearchConfig
	Captcha   CaptchaConfig
	Instagram InstagramConfig
	Session   SessionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Engine    EngineConfig
	Output    OutputConfig
	Webhook   WebhookConfig

	// SelectorsFile is an optional YAML overlay; see LoadOverlay.
	SelectorsFile string
	// Selectors is filled by Validate when SelectorsFile is set.
	Selectors *Overlay
}

// ServerConfig controls the HTTP server used by "serve".
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// JobTTL is how long finished search jobs stay queryable.
	JobTTL time.Duration // default: 1h

	// JobTimeout bounds one search job, manual captcha waits included.
	JobTimeout time.Duration // default: 30m

	// QueueSize bounds the number of waiting search jobs.
	QueueSize int // default: 16

	// MetricsAddr, when set, serves Prometheus metrics there (e.g. ":9090").
	MetricsAddr string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless is off by default: a person has to be able to solve captchas.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an http, https or socks5 proxy URL.
	Proxy         string
	ProxyUsername string
	ProxyPassword string

	// ProxyGeo is the proxy's country code; it selects locale and timezone.
	ProxyGeo string

	// Identity pins a browser identity by index; -1 picks one at random.
	Identity int // default: -1
}

// ScraperConfig controls page-level timing.
type ScraperConfig struct {
	// DefaultTimeout applies to every page wait with no explicit timeout.
	DefaultTimeout time.Duration // default: 30s

	// NavigationTimeout bounds page.Navigate.
	NavigationTimeout time.Duration // default: 60s

	// ProfileTimeout bounds one whole profile fetch.
	ProfileTimeout time.Duration // default: 90s

	// HeaderTimeout is how long a profile page gets to render its header.
	HeaderTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists resource types blocked on profile tabs.
	// default: ["Image", "Media", "Font"]
	BlockedResourceTypes []string

	// Humanize toggles typo-injecting typing and curved mouse moves.
	Humanize bool // default: true
}

// SearchConfig controls pagination and enrichment pacing.
type SearchConfig struct {
	MaxPages      int           // default: 3
	ProfileCap    int           // default: 25
	ProfileDelay  time.Duration // default: 3.5s
	ProfileJitter time.Duration // default: 3s
	ReadyTimeout  time.Duration // default: 15s
	ReadyDeadline time.Duration // default: 30s
}

// CaptchaConfig controls challenge detection and the manual wait.
type CaptchaConfig struct {
	ObserveWindow  time.Duration // default: 1.2s
	VisibleTimeout time.Duration // default: 250ms
	PollInterval   time.Duration // default: 1.8s
	ClearPolls     int           // default: 3
	TextScanLimit  int           // default: 6000

	// Bell rings the terminal bell with the captcha banner.
	Bell bool // default: true
}

// InstagramConfig holds the optional logged-in session.
type InstagramConfig struct {
	// SessionID is the "sessionid" cookie value (INSTAGRAM_SESSIONID).
	SessionID string
}

// SessionConfig controls cookie persistence between runs.
type SessionConfig struct {
	Enabled bool          // default: true
	Dir     string        // default: "data/sessions"
	TTL     time.Duration // default: 168h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the profile cache.
type CacheConfig struct {
	MaxEntries int           // default: 1000
	TTL        time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// EngineConfig controls profile-fetch escalation.
type EngineConfig struct {
	// EnableHTTP puts the TLS-fingerprinted HTTP engine before the browser.
	EnableHTTP bool // default: true

	// EscalationDelays is the pause before trying each engine tier.
	EscalationDelays []time.Duration // default: [0s, 0s]

	// HTTPTimeout is the deadline for the HTTP engine.
	HTTPTimeout time.Duration // default: 10s

	// MemoryTTL is how long the winning engine is remembered per host.
	MemoryTTL time.Duration // default: 30m
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir            string // default: "output"
	OnlyWithPhones bool   // default: false
	CSV            bool   // default: false

	// DBPath enables the SQLite lead store when set.
	DBPath string
}

// WebhookConfig controls job notifications in serve mode.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        envOr("LEADSCOUT_HOST", "127.0.0.1"),
			Port:        envIntOr("LEADSCOUT_PORT", 8080),
			Mode:        envOr("LEADSCOUT_MODE", "release"),
			JobTTL:      envDurationOr("LEADSCOUT_JOB_TTL", time.Hour),
			JobTimeout:  envDurationOr("LEADSCOUT_JOB_TIMEOUT", 30*time.Minute),
			QueueSize:   envIntOr("LEADSCOUT_QUEUE_SIZE", 16),
			MetricsAddr: os.Getenv("LEADSCOUT_METRICS_ADDR"),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("LEADSCOUT_HEADLESS", false),
			NoSandbox:     envBoolOr("LEADSCOUT_NO_SANDBOX", false),
			BrowserBin:    os.Getenv("LEADSCOUT_BROWSER_BIN"),
			Proxy:         os.Getenv("LEADSCOUT_PROXY"),
			ProxyUsername: os.Getenv("LEADSCOUT_PROXY_USERNAME"),
			ProxyPassword: os.Getenv("LEADSCOUT_PROXY_PASSWORD"),
			ProxyGeo:      os.Getenv("LEADSCOUT_PROXY_GEO"),
			Identity:      envIntOr("LEADSCOUT_IDENTITY", -1),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("LEADSCOUT_DEFAULT_TIMEOUT", 30*time.Second),
			NavigationTimeout: envDurationOr("LEADSCOUT_NAV_TIMEOUT", 60*time.Second),
			ProfileTimeout:    envDurationOr("LEADSCOUT_PROFILE_TIMEOUT", 90*time.Second),
			HeaderTimeout:     envDurationOr("LEADSCOUT_HEADER_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("LEADSCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Media", "Font",
			}),
			Humanize: envBoolOr("LEADSCOUT_HUMANIZE", true),
		},
		Search: SearchConfig{
			MaxPages:      envIntOr("LEADSCOUT_MAX_PAGES", 3),
			ProfileCap:    envIntOr("LEADSCOUT_PROFILE_CAP", 25),
			ProfileDelay:  envDurationOr("LEADSCOUT_PROFILE_DELAY", 3500*time.Millisecond),
			ProfileJitter: envDurationOr("LEADSCOUT_PROFILE_JITTER", 3*time.Second),
			ReadyTimeout:  envDurationOr("LEADSCOUT_READY_TIMEOUT", 15*time.Second),
			ReadyDeadline: envDurationOr("LEADSCOUT_READY_DEADLINE", 30*time.Second),
		},
		Captcha: CaptchaConfig{
			ObserveWindow:  envDurationOr("LEADSCOUT_CAPTCHA_OBSERVE", 1200*time.Millisecond),
			VisibleTimeout: envDurationOr("LEADSCOUT_CAPTCHA_VISIBLE_TIMEOUT", 250*time.Millisecond),
			PollInterval:   envDurationOr("LEADSCOUT_CAPTCHA_POLL", 1800*time.Millisecond),
			ClearPolls:     envIntOr("LEADSCOUT_CAPTCHA_CLEAR_POLLS", 3),
			TextScanLimit:  envIntOr("LEADSCOUT_CAPTCHA_TEXT_LIMIT", 6000),
			Bell:           envBoolOr("LEADSCOUT_CAPTCHA_BELL", true),
		},
		Instagram: InstagramConfig{
			SessionID: os.Getenv("INSTAGRAM_SESSIONID"),
		},
		Session: SessionConfig{
			Enabled: envBoolOr("LEADSCOUT_SESSION_ENABLED", true),
			Dir:     envOr("LEADSCOUT_SESSION_DIR", "data/sessions"),
			TTL:     envDurationOr("LEADSCOUT_SESSION_TTL", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("LEADSCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("LEADSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("LEADSCOUT_RATE_RPS", 2.0),
			Burst:             envIntOr("LEADSCOUT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("LEADSCOUT_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("LEADSCOUT_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("LEADSCOUT_LOG_LEVEL", "info"),
			Format: envOr("LEADSCOUT_LOG_FORMAT", "text"),
		},
		Engine: EngineConfig{
			EnableHTTP:       envBoolOr("LEADSCOUT_HTTP_ENGINE", true),
			EscalationDelays: envDurationSliceOr("LEADSCOUT_ESCALATION_DELAYS", []time.Duration{0, 0}),
			HTTPTimeout:      envDurationOr("LEADSCOUT_HTTP_TIMEOUT", 10*time.Second),
			MemoryTTL:        envDurationOr("LEADSCOUT_ENGINE_MEMORY_TTL", 30*time.Minute),
		},
		Output: OutputConfig{
			Dir:            envOr("LEADSCOUT_OUTPUT_DIR", "output"),
			OnlyWithPhones: envBoolOr("LEADSCOUT_ONLY_WITH_PHONES", false),
			CSV:            envBoolOr("LEADSCOUT_CSV", false),
			DBPath:         os.Getenv("LEADSCOUT_DB_PATH"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("LEADSCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("LEADSCOUT_WEBHOOK_SECRET"),
		},
		SelectorsFile: os.Getenv("LEADSCOUT_SELECTORS_FILE"),
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
