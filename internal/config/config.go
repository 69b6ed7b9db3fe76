package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets yaml fields use Go duration syntax ("30m", "1h30m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level giveaway.yml configuration.
type Config struct {
	ListenAddr       string   `yaml:"listen_addr"`
	Database         string   `yaml:"database"`
	ImageDir         string   `yaml:"image_dir"`
	HiddenDir        string   `yaml:"hidden_dir"`
	OfferInterval    Duration `yaml:"offer_interval"`
	WinnerCap        int      `yaml:"winner_cap"`
	LeaderboardLimit int      `yaml:"leaderboard_limit"`
	OfferWebhook     string   `yaml:"offer_webhook"`
}

// Default returns the configuration used when a field is left unset.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		Database:         "data/giveaway.db",
		ImageDir:         "img",
		HiddenDir:        "hidden_img",
		OfferInterval:    Duration(30 * time.Minute),
		WinnerCap:        3,
		LeaderboardLimit: 10,
	}
}

// Load reads the yaml config at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate performs strict validation on the configuration.
func (c Config) Validate() error {
	if c.WinnerCap < 1 {
		return fmt.Errorf("winner_cap must be at least 1, got %d", c.WinnerCap)
	}
	if c.OfferInterval.Std() < time.Second {
		return fmt.Errorf("offer_interval must be at least 1s, got %s", c.OfferInterval.Std())
	}
	if c.LeaderboardLimit < 1 {
		return fmt.Errorf("leaderboard_limit must be at least 1, got %d", c.LeaderboardLimit)
	}
	if c.ImageDir == "" {
		return fmt.Errorf("image_dir must not be empty")
	}
	if c.OfferWebhook == "" {
		return fmt.Errorf("offer_webhook must be set")
	}
	return nil
}
