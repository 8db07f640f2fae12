package config

import "time"

type Config struct {
	Data    DataConfig
	Source  SourceConfig
	Builder BuilderConfig
	History HistoryConfig
	Storage StorageConfig
	Refresh RefreshConfig
	Budget  BudgetConfig

	// Timezone decides where a budget day starts.
	Timezone string
	LogFile  string
	Debug    bool
}

type DataConfig struct {
	Path        string
	Codec       string
	Compression string
}

type SourceConfig struct {
	Provider     string // randomuser or synthetic
	BaseURL      string
	Nat          string
	Seed         string
	MaxBatch     int
	Timeout      time.Duration
	RateLimit    float64
	Retries      int
	RetryBackoff time.Duration
}

type BuilderConfig struct {
	MaxShortPages int
	PageTimeout   time.Duration
}

type HistoryConfig struct {
	Enabled bool
	Path    string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Keep      int
}

type RefreshConfig struct {
	Enabled  bool
	Schedule string
	Count    int
	Timeout  time.Duration
}

type BudgetConfig struct {
	Enabled    bool
	DailyLimit int
	WarnAt     float64
}
