package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Session   SessionConfig
	Betting   BettingConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
	Assistant AssistantConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SessionConfig holds flow-state tracker settings
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// BettingConfig holds settlement policy parameters
type BettingConfig struct {
	// WinProbability is the fixed Bernoulli win chance. It is deliberately
	// independent of the quoted odds (house-edge simulation).
	WinProbability float64
	HouseEdge      float64
	MinStake       string
	MaxStake       string
	CurrenciesFile string
}

// RateLimitConfig holds per-user sliding-window limits
type RateLimitConfig struct {
	Window     time.Duration
	FlowLimit  int
	BetLimit   int
	AdminLimit int
}

// MetricsConfig holds the /metrics and /healthz server settings
type MetricsConfig struct {
	Port string
}

// AssistantConfig holds the AI question-answering and voice settings
type AssistantConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	VoiceAPIKey  string
	VoiceBaseURL string
	Timeout      time.Duration
}
