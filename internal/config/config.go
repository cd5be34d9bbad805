package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace config file.
const FileName = "rps.yml"

// DefaultCooldownMonths is how long two agents stay ineligible after being paired.
const DefaultCooldownMonths = 8

// Config models rps.yml.
type Config struct {
	Scheduling struct {
		CooldownMonths int `yaml:"cooldown_months" json:"cooldown_months"`
	} `yaml:"scheduling" json:"scheduling"`
	Notifications struct {
		Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
		Kafka    KafkaConfig     `yaml:"kafka" json:"kafka"`
	} `yaml:"notifications" json:"notifications"`
}

// WebhookConfig describes one HTTP endpoint receiving events.
type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Secret         string   `yaml:"secret" json:"-"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled" json:"enabled,omitempty"`
}

// KafkaConfig describes the Kafka topic receiving events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Brokers []string `yaml:"brokers" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic" json:"topic,omitempty"`
	Events  []string `yaml:"events" json:"events,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with rps config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Scheduling.CooldownMonths < 0 {
		return fmt.Errorf("scheduling.cooldown_months must not be negative")
	}
	for i, hook := range c.Notifications.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("notifications.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("notifications.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	k := c.Notifications.Kafka
	if k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("notifications.kafka.brokers is required when kafka is enabled")
		}
		if strings.TrimSpace(k.Topic) == "" {
			return fmt.Errorf("notifications.kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing scheduling
// values fall back to defaults.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	cfg.Scheduling.CooldownMonths = DefaultCooldownMonths
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `scheduling:
  # Agents paired within this many months (before or after) of a week are not
  # paired again for that week.
  cooldown_months: 8

notifications:
  webhooks: []
  #  - url: https://example.com/hooks/rps
  #    secret: change-me
  #    events: [schedule.generate, schedule.set]
  #    timeout_seconds: 5
  kafka:
    enabled: false
    brokers: []
    topic: rps.events
`
