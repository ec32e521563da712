// Package config provides YAML-based configuration loading for Helpline.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Helpline configuration, loaded from config.yaml.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Escalation EscalationConfig `yaml:"escalation"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Queue      QueueConfig      `yaml:"queue"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// DatabaseConfig selects the backing store. Driver is "sqlite" (Path) or
// "mysql" (Host/Port/Name).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// OracleConfig controls the LLM oracle provider.
type OracleConfig struct {
	Command    string `yaml:"command"`     // CLI binary for LLM calls, e.g. "claude"
	TimeoutSec int    `yaml:"timeout_sec"` // per-call timeout
}

// EscalationConfig tunes the escalation evaluator.
type EscalationConfig struct {
	SentimentThreshold  float64 `yaml:"sentiment_threshold"`   // escalate below this
	MaxTurns            int     `yaml:"max_turns"`             // escalate at or beyond
	OrderValueThreshold float64 `yaml:"order_value_threshold"` // policy-exception cutoff
}

// ApprovalConfig tunes the human-approval gate.
type ApprovalConfig struct {
	Enabled            bool    `yaml:"enabled"`
	RefundThreshold    float64 `yaml:"refund_threshold"`
	SentimentThreshold float64 `yaml:"sentiment_threshold"`
	TenureDays         int     `yaml:"tenure_days"`
}

// QueueConfig tunes handoff queue wait estimation and the stale sweeper.
type QueueConfig struct {
	MinutesPerRequest    int    `yaml:"minutes_per_request"`
	SweepCron            string `yaml:"sweep_cron"`             // 5-field cron expression
	StaleAfterMin        int    `yaml:"stale_after_min"`        // abandon Queued older than this
	ArchiveTerminalState bool   `yaml:"archive_terminal_state"` // write history rows on resolve/abandon
}

// KnowledgeConfig tunes the knowledge retriever. With no Docs configured
// the built-in help articles are used.
type KnowledgeConfig struct {
	RetrievalK int            `yaml:"retrieval_k"`
	Docs       []KnowledgeDoc `yaml:"docs"`
}

// KnowledgeDoc is one retrievable help article.
type KnowledgeDoc struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Content  string `yaml:"content"`
}

// NotifyConfig holds notification channel settings. Tokens may be given
// here or via SLACK_BOT_TOKEN / DISCORD_BOT_TOKEN environment variables.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notification channel.
type SlackConfig struct {
	Token        string `yaml:"token"`
	Channel      string `yaml:"channel"`
	AlertChannel string `yaml:"alert_channel"` // urgent handoffs; defaults to Channel
}

// DiscordConfig configures the Discord notification channel.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied and no file read.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "helpline.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "helpline"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.API.Port == 0 {
		c.API.Port = 8000
	}
	if c.Oracle.Command == "" {
		c.Oracle.Command = "claude"
	}
	if c.Oracle.TimeoutSec == 0 {
		c.Oracle.TimeoutSec = 30
	}
	if c.Escalation.SentimentThreshold == 0 {
		c.Escalation.SentimentThreshold = -0.5
	}
	if c.Escalation.MaxTurns == 0 {
		c.Escalation.MaxTurns = 50
	}
	if c.Escalation.OrderValueThreshold == 0 {
		c.Escalation.OrderValueThreshold = 500
	}
	if c.Approval.RefundThreshold == 0 {
		c.Approval.RefundThreshold = 100
	}
	if c.Approval.SentimentThreshold == 0 {
		c.Approval.SentimentThreshold = -0.7
	}
	if c.Approval.TenureDays == 0 {
		c.Approval.TenureDays = 30
	}
	if c.Queue.MinutesPerRequest == 0 {
		c.Queue.MinutesPerRequest = 5
	}
	if c.Queue.SweepCron == "" {
		c.Queue.SweepCron = "*/15 * * * *"
	}
	if c.Queue.StaleAfterMin == 0 {
		c.Queue.StaleAfterMin = 120
	}
	if c.Knowledge.RetrievalK == 0 {
		c.Knowledge.RetrievalK = 4
	}
	if c.Notify.Slack.Token == "" {
		c.Notify.Slack.Token = os.Getenv("SLACK_BOT_TOKEN")
	}
	if c.Notify.Slack.AlertChannel == "" {
		c.Notify.Slack.AlertChannel = c.Notify.Slack.Channel
	}
	if c.Notify.Discord.Token == "" {
		c.Notify.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Escalation.SentimentThreshold < -1 || c.Escalation.SentimentThreshold > 1 {
		errs = append(errs, "escalation.sentiment_threshold must be in [-1, 1]")
	}
	if c.Approval.SentimentThreshold < -1 || c.Approval.SentimentThreshold > 1 {
		errs = append(errs, "approval.sentiment_threshold must be in [-1, 1]")
	}
	if c.Notify.Slack.Token != "" && c.Notify.Slack.Channel == "" {
		errs = append(errs, "notify.slack.channel is required when a slack token is set")
	}
	if c.Notify.Discord.Token != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when a discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
