package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marianfoo/bluesky-bots/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bots.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[global]
database = "/var/lib/bots/bots.db"
min_post_interval = "10m"
seed_on_first_run = true

[server]
enabled = true
port = 3000

[[npm]]
name = "ui5-packages"
query = "ui5"
interval = "30m"
tags = ["UI5", "OpenSource"]

[[rss]]
name = "sap-blogs"
url = "https://blogs.sap.com/feed"
interval = "1h"

[[reddit]]
name = "r-sap"
subreddit = "SAP"
limit = 10
interval = "15m"

[followers]
enabled = true
interval = "5m"
message = "Welcome aboard, @{handle}!"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bots/bots.db", cfg.Global.Database)
	assert.Equal(t, 10*time.Minute, cfg.Global.MinPostInterval.Duration)
	assert.True(t, cfg.Global.SeedOnFirstRun)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 3000, cfg.Server.Port)

	require.Len(t, cfg.Npm, 1)
	assert.Equal(t, "ui5-packages", cfg.Npm[0].Name)
	assert.Equal(t, "ui5", cfg.Npm[0].Query)
	assert.Equal(t, 30*time.Minute, cfg.Npm[0].Interval.Duration)
	assert.Equal(t, []string{"UI5", "OpenSource"}, cfg.Npm[0].Tags)

	require.Len(t, cfg.Rss, 1)
	assert.Equal(t, time.Hour, cfg.Rss[0].Interval.Duration)

	require.Len(t, cfg.Reddit, 1)
	assert.Equal(t, "SAP", cfg.Reddit[0].Subreddit)
	assert.Equal(t, 10, cfg.Reddit[0].Limit)

	assert.True(t, cfg.Followers.Enabled)
	assert.Equal(t, "Welcome aboard, @{handle}!", cfg.Followers.Message)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[[npm]]
name = "ui5-packages"
query = "ui5"
interval = "30m"

[[reddit]]
name = "r-sap"
subreddit = "SAP"
interval = "15m"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "bots.db", cfg.Global.Database)
	assert.Equal(t, 5*time.Minute, cfg.Global.MinPostInterval.Duration)
	assert.Equal(t, 5, cfg.Global.MaxPerCycle)
	assert.NotEmpty(t, cfg.Global.UserAgent)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, 50, cfg.Npm[0].Size)
	assert.Equal(t, 25, cfg.Reddit[0].Limit)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "duplicate bot names",
			content: `
[[npm]]
name = "same"
query = "ui5"
interval = "30m"

[[rss]]
name = "same"
url = "https://blogs.sap.com/feed"
interval = "1h"
`,
			wantErr: "duplicate bot name",
		},
		{
			name: "empty bot name",
			content: `
[[npm]]
name = ""
query = "ui5"
interval = "30m"
`,
			wantErr: "empty name",
		},
		{
			name: "npm bot without query",
			content: `
[[npm]]
name = "ui5-packages"
interval = "30m"
`,
			wantErr: "has no query",
		},
		{
			name: "rss bot without url",
			content: `
[[rss]]
name = "sap-blogs"
interval = "1h"
`,
			wantErr: "has no url",
		},
		{
			name: "reddit bot without subreddit",
			content: `
[[reddit]]
name = "r-sap"
interval = "15m"
`,
			wantErr: "has no subreddit",
		},
		{
			name: "reserved followers name",
			content: `
[[npm]]
name = "followers"
query = "ui5"
interval = "30m"
`,
			wantErr: "reserved",
		},
		{
			name: "bot without interval",
			content: `
[[npm]]
name = "ui5-packages"
query = "ui5"
`,
			wantErr: "has no interval",
		},
		{
			name: "enabled followers bot without interval",
			content: `
[followers]
enabled = true
`,
			wantErr: "followers bot is enabled but has no interval",
		},
		{
			name: "invalid duration",
			content: `
[[npm]]
name = "ui5-packages"
query = "ui5"
interval = "half an hour"
`,
			wantErr: "error parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "error reading config file")
}
