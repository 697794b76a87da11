package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so intervals can be written as "30m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// TomlGlobal holds settings shared by all bots
type TomlGlobal struct {
	Database        string   `toml:"database"`
	UserAgent       string   `toml:"user_agent,omitempty"`
	MinPostInterval Duration `toml:"min_post_interval,omitempty"`
	MaxPerCycle     int      `toml:"max_per_cycle,omitempty"`
	SeedOnFirstRun  bool     `toml:"seed_on_first_run,omitempty"`
}

// TomlServer configures the status HTTP server
type TomlServer struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port,omitempty"`
}

// TomlNpmBot represents an npm registry search bot
type TomlNpmBot struct {
	Name     string   `toml:"name"`
	Query    string   `toml:"query"`
	Size     int      `toml:"size,omitempty"`
	Interval Duration `toml:"interval"`
	Tags     []string `toml:"tags,omitempty"`
}

// TomlRssBot represents an RSS/Atom feed bot
type TomlRssBot struct {
	Name     string   `toml:"name"`
	URL      string   `toml:"url"`
	Interval Duration `toml:"interval"`
	Tags     []string `toml:"tags,omitempty"`
}

// TomlRedditBot represents a subreddit listing bot
type TomlRedditBot struct {
	Name      string   `toml:"name"`
	Subreddit string   `toml:"subreddit"`
	Limit     int      `toml:"limit,omitempty"`
	Interval  Duration `toml:"interval"`
	Tags      []string `toml:"tags,omitempty"`
}

// TomlFollowersBot represents the new-follower welcome bot
type TomlFollowersBot struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
	Message  string   `toml:"message,omitempty"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Global    TomlGlobal       `toml:"global"`
	Server    TomlServer       `toml:"server"`
	Npm       []TomlNpmBot     `toml:"npm"`
	Rss       []TomlRssBot     `toml:"rss"`
	Reddit    []TomlRedditBot  `toml:"reddit"`
	Followers TomlFollowersBot `toml:"followers"`
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *TomlConfig) {
	if config.Global.Database == "" {
		config.Global.Database = "bots.db"
	}
	if config.Global.UserAgent == "" {
		config.Global.UserAgent = "bluesky-bots (github.com/marianfoo/bluesky-bots)"
	}
	if config.Global.MinPostInterval.Duration == 0 {
		config.Global.MinPostInterval.Duration = 5 * time.Minute
	}
	if config.Global.MaxPerCycle == 0 {
		config.Global.MaxPerCycle = 5
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	for i := range config.Npm {
		if config.Npm[i].Size == 0 {
			config.Npm[i].Size = 50
		}
	}
	for i := range config.Reddit {
		if config.Reddit[i].Limit == 0 {
			config.Reddit[i].Limit = 25
		}
	}
}

func validate(config *TomlConfig) error {
	names := map[string]bool{}
	check := func(name string) error {
		if name == "" {
			return fmt.Errorf("bot with empty name in config")
		}
		// The followers bot always runs under this name
		if name == "followers" {
			return fmt.Errorf("bot name followers is reserved")
		}
		if names[name] {
			return fmt.Errorf("duplicate bot name in config: %s", name)
		}
		names[name] = true
		return nil
	}

	for _, bot := range config.Npm {
		if err := check(bot.Name); err != nil {
			return err
		}
		if bot.Query == "" {
			return fmt.Errorf("npm bot %s has no query", bot.Name)
		}
		if bot.Interval.Duration <= 0 {
			return fmt.Errorf("npm bot %s has no interval", bot.Name)
		}
	}
	for _, bot := range config.Rss {
		if err := check(bot.Name); err != nil {
			return err
		}
		if bot.URL == "" {
			return fmt.Errorf("rss bot %s has no url", bot.Name)
		}
		if bot.Interval.Duration <= 0 {
			return fmt.Errorf("rss bot %s has no interval", bot.Name)
		}
	}
	for _, bot := range config.Reddit {
		if err := check(bot.Name); err != nil {
			return err
		}
		if bot.Subreddit == "" {
			return fmt.Errorf("reddit bot %s has no subreddit", bot.Name)
		}
		if bot.Interval.Duration <= 0 {
			return fmt.Errorf("reddit bot %s has no interval", bot.Name)
		}
	}
	if config.Followers.Enabled && config.Followers.Interval.Duration <= 0 {
		return fmt.Errorf("followers bot is enabled but has no interval")
	}
	return nil
}
