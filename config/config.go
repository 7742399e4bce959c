package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"intellab-testing/internal/domain"

	"github.com/joho/godotenv"
)

// Cache backends for the shared session store.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the run configuration
type Config struct {
	APIURL            string             // Base URL of the Intellab API
	Credentials       domain.Credentials // Test account
	RequestTimeout    time.Duration      // Per-request timeout for every HTTP call
	IterationInterval time.Duration      // Pause between iterations of one virtual user
	CacheBackend      string             // memory or redis
	RedisURL          string             // Used when CacheBackend is redis
	CacheKey          string             // Redis key holding the shared session
	HandshakeRate     float64            // Handshakes per second, 0 means unlimited
	HandshakeBurst    int                // Burst for the handshake limiter
	StatusAddr        string             // Status server address, empty disables it
	LogLevel          string
	Scenario          Scenario
}

// Load reads configuration from environment variables and the scenario
// file. An empty scenarioFile selects the built-in submit scenario.
func Load(scenarioFile string) (*Config, error) {
	config := &Config{
		APIURL: strings.TrimRight(getEnv("API_URL", ""), "/"),
		Credentials: domain.Credentials{
			Email:    getEnv("TESTER_EMAIL", ""),
			Password: getEnv("TESTER_PASSWORD", ""),
		},
		RequestTimeout:    30 * time.Second,
		IterationInterval: 5 * time.Second,
		CacheBackend:      strings.ToLower(getEnv("AUTH_CACHE_BACKEND", BackendMemory)),
		RedisURL:          getEnv("AUTH_CACHE_REDIS_URL", "redis://localhost:6379/0"),
		CacheKey:          getEnv("AUTH_CACHE_KEY", "intellab:loadtest:auth"),
		HandshakeBurst:    1,
		StatusAddr:        "localhost:6565",
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	// An explicitly empty STATUS_ADDR disables the status server.
	if addr, ok := os.LookupEnv("STATUS_ADDR"); ok {
		config.StatusAddr = addr
	}

	var err error
	if config.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", config.RequestTimeout); err != nil {
		return nil, err
	}
	if config.IterationInterval, err = durationEnv("ITERATION_INTERVAL", config.IterationInterval); err != nil {
		return nil, err
	}

	if v := os.Getenv("AUTH_HANDSHAKE_RATE"); v != "" {
		config.HandshakeRate, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid AUTH_HANDSHAKE_RATE: %w", domain.ErrConfiguration, err)
		}
	}
	if v := os.Getenv("AUTH_HANDSHAKE_BURST"); v != "" {
		config.HandshakeBurst, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid AUTH_HANDSHAKE_BURST: %w", domain.ErrConfiguration, err)
		}
	}

	config.Scenario, err = LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid. Missing credentials are
// not an error here: iterations are skipped at run time instead.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%w: API_URL environment variable must be set", domain.ErrConfiguration)
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: API_URL must be an absolute URL, got %q", domain.ErrConfiguration, c.APIURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", domain.ErrConfiguration)
	}
	if c.IterationInterval <= 0 {
		return fmt.Errorf("%w: ITERATION_INTERVAL must be positive", domain.ErrConfiguration)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: AUTH_CACHE_REDIS_URL cannot be empty", domain.ErrConfiguration)
		}
		if c.CacheKey == "" {
			return fmt.Errorf("%w: AUTH_CACHE_KEY cannot be empty", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: AUTH_CACHE_BACKEND must be memory or redis, got %q", domain.ErrConfiguration, c.CacheBackend)
	}

	if c.HandshakeRate < 0 {
		return fmt.Errorf("%w: AUTH_HANDSHAKE_RATE must not be negative", domain.ErrConfiguration)
	}
	if c.HandshakeRate > 0 && c.HandshakeBurst < 1 {
		return fmt.Errorf("%w: AUTH_HANDSHAKE_BURST must be at least 1", domain.ErrConfiguration)
	}

	return c.Scenario.Validate()
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding variables that are already set. An empty
// path loads ./.env when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to load env file %s: %w", domain.ErrConfiguration, path, err)
	}
	return nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s format: %w", domain.ErrConfiguration, key, err)
	}
	return d, nil
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
