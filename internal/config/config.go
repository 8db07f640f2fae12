package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func Load() (*Config, error) {
	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	dataConfig, err := loadDataConfig()
	if err != nil {
		return nil, err
	}

	sourceConfig, err := loadSourceConfig()
	if err != nil {
		return nil, err
	}

	builderConfig, err := loadBuilderConfig()
	if err != nil {
		return nil, err
	}

	refreshConfig, err := loadRefreshConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Data:     dataConfig,
		Source:   sourceConfig,
		Builder:  builderConfig,
		History:  loadHistoryConfig(),
		Storage:  loadStorageConfig(),
		Refresh:  refreshConfig,
		Budget:   loadBudgetConfig(),
		Timezone: timezone,
		LogFile:  os.Getenv("ROSTER_LOG_FILE"),
		Debug:    os.Getenv("ROSTER_DEBUG") == "true",
	}, nil
}

func loadDataConfig() (DataConfig, error) {
	path := os.Getenv("ROSTER_DATA_FILE")
	if path == "" {
		path = "dados.txt"
	}

	codec := os.Getenv("ROSTER_CODEC")
	switch codec {
	case "":
		codec = "json"
	case "json", "yaml", "yml":
	default:
		return DataConfig{}, fmt.Errorf("unknown ROSTER_CODEC: %s", codec)
	}

	compression := os.Getenv("ROSTER_COMPRESSION")
	switch compression {
	case "":
		compression = "none"
	case "none", "zstd", "lz4":
	default:
		return DataConfig{}, fmt.Errorf("unknown ROSTER_COMPRESSION: %s", compression)
	}

	return DataConfig{
		Path:        path,
		Codec:       codec,
		Compression: compression,
	}, nil
}

func loadSourceConfig() (SourceConfig, error) {
	provider := os.Getenv("ROSTER_SOURCE")
	switch provider {
	case "":
		provider = "randomuser"
	case "randomuser", "synthetic":
	default:
		return SourceConfig{}, fmt.Errorf("unknown ROSTER_SOURCE: %s", provider)
	}

	baseURL := os.Getenv("ROSTER_SOURCE_URL")
	if baseURL == "" {
		baseURL = "https://randomuser.me/api/"
	}

	nat := os.Getenv("ROSTER_NAT")
	if nat == "" {
		nat = "us"
	}

	// randomuser.me caps a single request at 5000 results
	maxBatch, err := envInt("ROSTER_MAX_BATCH", 5000)
	if err != nil {
		return SourceConfig{}, err
	}
	if maxBatch <= 0 {
		return SourceConfig{}, fmt.Errorf("ROSTER_MAX_BATCH must be positive, got %d", maxBatch)
	}

	timeout, err := envDuration("ROSTER_FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return SourceConfig{}, err
	}

	rateLimit, err := envFloat("ROSTER_RATE_LIMIT", 2)
	if err != nil {
		return SourceConfig{}, err
	}

	retries, err := envInt("ROSTER_RETRIES", 0)
	if err != nil {
		return SourceConfig{}, err
	}

	backoff, err := envDuration("ROSTER_RETRY_BACKOFF", time.Second)
	if err != nil {
		return SourceConfig{}, err
	}

	return SourceConfig{
		Provider:     provider,
		BaseURL:      baseURL,
		Nat:          nat,
		Seed:         os.Getenv("ROSTER_SEED"),
		MaxBatch:     maxBatch,
		Timeout:      timeout,
		RateLimit:    rateLimit,
		Retries:      retries,
		RetryBackoff: backoff,
	}, nil
}

func loadBuilderConfig() (BuilderConfig, error) {
	maxShort, err := envInt("ROSTER_MAX_SHORT_PAGES", 3)
	if err != nil {
		return BuilderConfig{}, err
	}

	pageTimeout, err := envDuration("ROSTER_PAGE_TIMEOUT", time.Minute)
	if err != nil {
		return BuilderConfig{}, err
	}

	return BuilderConfig{
		MaxShortPages: maxShort,
		PageTimeout:   pageTimeout,
	}, nil
}

func loadHistoryConfig() HistoryConfig {
	path, set := os.LookupEnv("ROSTER_HISTORY_DB")
	if !set {
		path = "roster.db"
	}

	// explicitly empty disables history
	return HistoryConfig{
		Enabled: path != "",
		Path:    path,
	}
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	bucket := os.Getenv("ROSTER_BACKUP_BUCKET")
	if bucket == "" {
		bucket = "roster-datasets"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	keep := 0 // unlimited
	if n, err := strconv.Atoi(os.Getenv("ROSTER_BACKUP_KEEP")); err == nil && n > 0 {
		keep = n
	}

	return StorageConfig{
		Enabled:   accessKey != "" && secretKey != "",
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Bucket:    bucket,
		Keep:      keep,
	}
}

func loadRefreshConfig() (RefreshConfig, error) {
	schedule := os.Getenv("ROSTER_REFRESH_SCHEDULE")

	count, err := envInt("ROSTER_REFRESH_COUNT", 1000)
	if err != nil {
		return RefreshConfig{}, err
	}

	timeout, err := envDuration("ROSTER_REFRESH_TIMEOUT", 10*time.Minute)
	if err != nil {
		return RefreshConfig{}, err
	}

	return RefreshConfig{
		Enabled:  schedule != "",
		Schedule: schedule,
		Count:    count,
		Timeout:  timeout,
	}, nil
}

func loadBudgetConfig() BudgetConfig {
	enabled := os.Getenv("ROSTER_BUDGET_ENABLED") == "true"

	dailyLimit := 50000 // records per day
	if limit, err := strconv.Atoi(os.Getenv("ROSTER_BUDGET_DAILY_LIMIT")); err == nil && limit > 0 {
		dailyLimit = limit
	}

	warnAt := 0.8
	if warn, err := strconv.ParseFloat(os.Getenv("ROSTER_BUDGET_WARN_AT"), 64); err == nil && warn > 0 && warn < 1 {
		warnAt = warn
	}

	return BudgetConfig{
		Enabled:    enabled,
		DailyLimit: dailyLimit,
		WarnAt:     warnAt,
	}
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
