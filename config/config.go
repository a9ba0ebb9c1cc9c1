package config

import (
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisAddr   string
	RedisDB     int
	RedisStream string
	RedisMaxLen int64

	// Memcache configuration
	MemcacheAddr string

	// Naver Open API credentials
	NaverClientID     string
	NaverClientSecret string

	// Naver cafe login credentials, for sources that require login
	NaverLoginID       string
	NaverLoginPassword string

	// Kakao REST API key for the Daum cafe search API
	KakaoRESTKey string

	// Crawl configuration
	MaxResults      int
	RequestTimeout  time.Duration
	PersistSamples  bool
	BrowserHeadless bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisMaxLen, _ := strconv.ParseInt(getEnv("REDIS_STREAM_MAXLEN", "1000"), 10, 64)
	maxResults, _ := strconv.Atoi(getEnv("MAX_RESULTS", "20"))
	timeoutSec, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            redisDB,
		RedisStream:        getEnv("REDIS_STREAM", "academy-posts"),
		RedisMaxLen:        redisMaxLen,
		MemcacheAddr:       getEnv("MEMCACHE_ADDR", "localhost:11211"),
		NaverClientID:      getEnv("NAVER_CLIENT_ID", ""),
		NaverClientSecret:  getEnv("NAVER_CLIENT_SECRET", ""),
		NaverLoginID:       getEnv("NAVER_LOGIN_ID", ""),
		NaverLoginPassword: getEnv("NAVER_LOGIN_PASSWORD", ""),
		KakaoRESTKey:       getEnv("KAKAO_REST_KEY", ""),
		MaxResults:         maxResults,
		RequestTimeout:     time.Duration(timeoutSec) * time.Second,
		PersistSamples:     getEnvBool("PERSIST_SAMPLE_POSTS", false),
		BrowserHeadless:    getEnvBool("BROWSER_HEADLESS", true),
		Environment:        getEnv("RADAR_ENVIRONMENT", "development"),
	}
}

// HasNaverAPI reports whether the Naver Open API credentials are configured.
func (c *Config) HasNaverAPI() bool {
	return c.NaverClientID != "" && c.NaverClientSecret != ""
}

// HasKakaoAPI reports whether the Kakao REST API key is configured.
func (c *Config) HasKakaoAPI() bool {
	return c.KakaoRESTKey != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
