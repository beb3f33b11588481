package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	Addr     string
	LogLevel string

	VisionAPIKey   string
	VisionAPIURL   string
	VisionModel    string
	ImageGenAPIURL string
	ImageGenModel  string

	DemoMode     bool
	DemoScenario string
	DemoAssetDir string

	CacheTTLAnalyze     time.Duration
	CacheTTLFuture      time.Duration
	CacheTTLFutureImage time.Duration
	CacheTTLCanned      time.Duration
	CacheCapAnalyze     int
	CacheCapFuture      int
	CacheCapFutureImage int
	CacheSweepInterval  time.Duration

	SnapshotDriver   string
	SnapshotPath     string
	SnapshotMaxBytes int64
	RedisAddr        string

	ProbeURL      string
	ProbeInterval time.Duration

	UpstreamTimeout time.Duration

	Events EventsCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		VisionAPIKey:   getenv("VISION_API_KEY", ""),
		VisionAPIURL:   getenv("VISION_API_URL", "https://api.openai.com/v1/chat/completions"),
		VisionModel:    getenv("VISION_MODEL", "gpt-4o"),
		ImageGenAPIURL: getenv("IMAGEGEN_API_URL", "https://api.openai.com/v1/images/generations"),
		ImageGenModel:  getenv("IMAGEGEN_MODEL", "dall-e-3"),

		DemoMode:     getbool("DEMO_MODE", false),
		DemoScenario: getenv("DEMO_SCENARIO", "powerline"),
		DemoAssetDir: getenv("DEMO_ASSET_DIR", "assets/demo"),

		CacheTTLAnalyze:     getduration("CACHE_TTL_ANALYZE", 30*time.Minute),
		CacheTTLFuture:      getduration("CACHE_TTL_FUTURE", 2*time.Hour),
		CacheTTLFutureImage: getduration("CACHE_TTL_FUTURE_IMAGE", 2*time.Hour),
		CacheTTLCanned:      getduration("CACHE_TTL_CANNED", 24*time.Hour),
		CacheCapAnalyze:     getint("CACHE_CAP_ANALYZE", 40),
		CacheCapFuture:      getint("CACHE_CAP_FUTURE", 20),
		CacheCapFutureImage: getint("CACHE_CAP_FUTURE_IMAGE", 10),
		CacheSweepInterval:  getduration("CACHE_SWEEP_INTERVAL", 5*time.Minute),

		SnapshotDriver:   getenv("SNAPSHOT_DRIVER", "file"),
		SnapshotPath:     getenv("SNAPSHOT_PATH", "gridsight.snapshot.json"),
		SnapshotMaxBytes: getint64("SNAPSHOT_MAX_BYTES", 4<<20),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),

		ProbeURL:      getenv("PROBE_URL", "https://www.gstatic.com/generate_204"),
		ProbeInterval: getduration("PROBE_INTERVAL", 30*time.Second),

		UpstreamTimeout: getduration("UPSTREAM_TIMEOUT", 45*time.Second),

		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "gridsight-events"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
