package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"intellab-testing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads, restoring them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_URL", "TESTER_EMAIL", "TESTER_PASSWORD", "TESTER_PASSWORD_FILE",
		"REQUEST_TIMEOUT", "ITERATION_INTERVAL", "AUTH_CACHE_BACKEND",
		"AUTH_CACHE_REDIS_URL", "AUTH_CACHE_KEY", "AUTH_HANDSHAKE_RATE",
		"AUTH_HANDSHAKE_BURST", "STATUS_ADDR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		check       func(t *testing.T, cfg *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "defaults with only API_URL",
			env:  map[string]string{"API_URL": "https://api.intellab.test/"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://api.intellab.test", cfg.APIURL)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
				assert.Equal(t, 5*time.Second, cfg.IterationInterval)
				assert.Equal(t, BackendMemory, cfg.CacheBackend)
				assert.Equal(t, "localhost:6565", cfg.StatusAddr)
				assert.Zero(t, cfg.HandshakeRate)
				assert.False(t, cfg.Credentials.Complete())
				assert.Equal(t, "submit", cfg.Scenario.Name)
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"API_URL":             "http://localhost:8080",
				"TESTER_EMAIL":        "tester@intellab.test",
				"TESTER_PASSWORD":     "secret",
				"REQUEST_TIMEOUT":     "5s",
				"ITERATION_INTERVAL":  "1s",
				"AUTH_CACHE_BACKEND":  "Redis",
				"AUTH_HANDSHAKE_RATE": "0.5",
				"STATUS_ADDR":         "",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, domain.Credentials{Email: "tester@intellab.test", Password: "secret"}, cfg.Credentials)
				assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
				assert.Equal(t, time.Second, cfg.IterationInterval)
				assert.Equal(t, BackendRedis, cfg.CacheBackend)
				assert.Equal(t, 0.5, cfg.HandshakeRate)
				assert.Empty(t, cfg.StatusAddr)
			},
		},
		{
			name:        "missing API_URL",
			env:         map[string]string{},
			wantErr:     true,
			errContains: "API_URL",
		},
		{
			name:        "relative API_URL",
			env:         map[string]string{"API_URL": "api.intellab.test"},
			wantErr:     true,
			errContains: "absolute URL",
		},
		{
			name:        "invalid timeout",
			env:         map[string]string{"API_URL": "http://localhost", "REQUEST_TIMEOUT": "soon"},
			wantErr:     true,
			errContains: "REQUEST_TIMEOUT",
		},
		{
			name:        "unknown backend",
			env:         map[string]string{"API_URL": "http://localhost", "AUTH_CACHE_BACKEND": "memcached"},
			wantErr:     true,
			errContains: "AUTH_CACHE_BACKEND",
		},
		{
			name:        "negative handshake rate",
			env:         map[string]string{"API_URL": "http://localhost", "AUTH_HANDSHAKE_RATE": "-1"},
			wantErr:     true,
			errContains: "AUTH_HANDSHAKE_RATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load("")

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrConfiguration)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestGetEnv_FileIndirection(t *testing.T) {
	clearEnv(t)
	secret := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(secret, []byte("from-file\n"), 0o600))

	t.Setenv("TESTER_PASSWORD", "from-env")
	t.Setenv("TESTER_PASSWORD_FILE", secret)

	assert.Equal(t, "from-file", getEnv("TESTER_PASSWORD", ""))
}

func TestGetEnv_UnreadableFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("TESTER_PASSWORD", "from-env")
	t.Setenv("TESTER_PASSWORD_FILE", filepath.Join(t.TempDir(), "missing"))

	assert.Equal(t, "from-env", getEnv("TESTER_PASSWORD", ""))
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TESTER_EMAIL", "from-shell@intellab.test")

	path := filepath.Join(t.TempDir(), "loadtest.env")
	content := "API_URL=https://api.intellab.test\nTESTER_EMAIL=from-file@intellab.test\nTESTER_PASSWORD=secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "https://api.intellab.test", os.Getenv("API_URL"))
	assert.Equal(t, "secret", os.Getenv("TESTER_PASSWORD"))
	// Variables already in the environment win.
	assert.Equal(t, "from-shell@intellab.test", os.Getenv("TESTER_EMAIL"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadEnvFile_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadEnvFile(""))
}
