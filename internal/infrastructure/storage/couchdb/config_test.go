package couchdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5984, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "http://localhost:5984", cfg.BaseURL())
}

func TestConfig_BaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "couch.example.com"
	cfg.Port = 6984
	cfg.SSL = true
	assert.Equal(t, "https://couch.example.com:6984", cfg.BaseURL())

	cfg.Host = "::1"
	assert.Equal(t, "https://[::1]:6984", cfg.BaseURL())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"uppercase db", func(c *Config) { c.DBName = "Advisories" }},
		{"empty db", func(c *Config) { c.DBName = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())

			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestNew_DefaultsPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FindPageSize = 0

	client, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().FindPageSize, client.cfg.FindPageSize)
	assert.Equal(t, "secvisogram", client.DBName())
}

func TestEndpoint_EscapesSegments(t *testing.T) {
	client, err := New(DefaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5984/", client.endpoint(nil, nil))
	assert.Equal(t, "http://localhost:5984/secvisogram/a%2Fb",
		client.endpoint(client.dbPath("a/b"), nil))
	assert.Equal(t, "http://localhost:5984/secvisogram/doc?rev=1-abc",
		client.endpoint(client.dbPath("doc"), map[string][]string{"rev": {"1-abc"}}))
}
