package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// RPC settings
	RPCURL         string
	Commitment     string
	ConfirmTimeout time.Duration

	// Swap info registry: URL takes precedence, file is the fallback
	RegistryURL  string
	RegistryFile string
	RegistryTTL  time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// API server
	ListenAddr    string
	DevMode       bool
	APIKey        string
	SwapRateLimit float64 // swap submissions per second
	SwapRateBurst int

	// Signing / fee settings
	OwnerKey             string
	LamportsPerSignature uint64
}

func Load() *Config {
	return &Config{
		// RPC
		RPCURL:         getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		Commitment:     getEnv("SOLANA_COMMITMENT", "confirmed"),
		ConfirmTimeout: getDurationEnv("CONFIRM_TIMEOUT", 60*time.Second),

		// Registry
		RegistryURL:  getEnv("SWAP_REGISTRY_URL", ""),
		RegistryFile: getEnv("SWAP_REGISTRY_FILE", "swap-info.json"),
		RegistryTTL:  getDurationEnv("SWAP_REGISTRY_TTL", 10*time.Minute),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// API
		ListenAddr:    getEnv("LISTEN_ADDR", ":8090"),
		DevMode:       getBoolEnv("DEV_MODE", false),
		APIKey:        getEnv("API_KEY", ""),
		SwapRateLimit: getFloatEnv("SWAP_RATE_LIMIT", 0.5),
		SwapRateBurst: getIntEnv("SWAP_RATE_BURST", 2),

		// Signing / fees
		OwnerKey:             getEnv("OWNER_KEY", ""),
		LamportsPerSignature: getUint64Env("LAMPORTS_PER_SIGNATURE", 5_000),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
