package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "./data/settlewise.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 16, cfg.HubBuffer)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantErr      string
		validateFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "postgres",
			env: map[string]string{
				"JWT_SECRET":      "secret",
				"DB_DRIVER":       "Postgres",
				"DATABASE_URL":    "postgres://localhost/settlewise",
				"PORT":            "9090",
				"TOKEN_TTL":       "1h",
				"ALLOWED_ORIGINS": "example.com, *.example.org ,",
				"LOG_FORMAT":      "JSON",
			},
			validateFunc: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverPostgres, cfg.DBDriver)
				assert.Equal(t, 9090, cfg.Port)
				assert.Equal(t, time.Hour, cfg.TokenTTL)
				assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.AllowedOrigins)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name:    "missing secret",
			env:     map[string]string{},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "postgres"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "mysql"},
			wantErr: "unknown DB_DRIVER",
		},
		{
			name:    "bad port",
			env:     map[string]string{"JWT_SECRET": "s", "PORT": "http"},
			wantErr: "invalid PORT",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"JWT_SECRET": "s", "REQUEST_TIMEOUT": "10"},
			wantErr: "invalid REQUEST_TIMEOUT",
		},
		{
			name:    "bad log format",
			env:     map[string]string{"JWT_SECRET": "s", "LOG_FORMAT": "xml"},
			wantErr: "unknown LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"JWT_SECRET", "DB_DRIVER", "DATABASE_URL", "PORT", "TOKEN_TTL", "REQUEST_TIMEOUT", "ALLOWED_ORIGINS", "LOG_FORMAT"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := FromEnv()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateFunc(t, cfg)
		})
	}
}
