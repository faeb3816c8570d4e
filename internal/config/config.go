package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yml"
const EnvPrefix = "TASKWISE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	Archive    ArchiveConfig    `mapstructure:"archive" yaml:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Summarizer SummarizerConfig `mapstructure:"summarizer" yaml:"summarizer"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Heartbeat       time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	MinConnections int           `mapstructure:"min_connections" yaml:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Migrate        bool          `mapstructure:"migrate" yaml:"migrate"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

// RepositoryConfig selects the store: inmemory, postgres, sqlite or mysql.
// The sqlite and mysql stores read their DSN from database.url.
type RepositoryConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
}

type ArchiveConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Retention    time.Duration `mapstructure:"retention" yaml:"retention"`
	Schedule     string        `mapstructure:"schedule" yaml:"schedule"`
	StartupDelay time.Duration `mapstructure:"startup_delay" yaml:"startup_delay"`
}

type NotifyConfig struct {
	SlackWebhookURL     string        `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	DiscordWebhookID    string        `mapstructure:"discord_webhook_id" yaml:"discord_webhook_id"`
	DiscordWebhookToken string        `mapstructure:"discord_webhook_token" yaml:"discord_webhook_token"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SummarizerConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Model     string        `mapstructure:"model" yaml:"model"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MinLength int           `mapstructure:"min_length" yaml:"min_length"`
}

type AuthConfig struct {
	BootstrapSysadmins []string `mapstructure:"bootstrap_sysadmins" yaml:"bootstrap_sysadmins"`
}

var repositoryTypes = []string{"inmemory", "postgres", "sqlite", "mysql"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.heartbeat", 15*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", "inmemory")

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.retention", 48*time.Hour)
	v.SetDefault("archive.schedule", "0 * * * *")
	v.SetDefault("archive.startup_delay", 5*time.Second)

	v.SetDefault("notify.slack_webhook_url", "")
	v.SetDefault("notify.discord_webhook_id", "")
	v.SetDefault("notify.discord_webhook_token", "")
	v.SetDefault("notify.timeout", 5*time.Second)

	v.SetDefault("summarizer.endpoint", "")
	v.SetDefault("summarizer.api_key", "")
	v.SetDefault("summarizer.model", "")
	v.SetDefault("summarizer.timeout", 30*time.Second)
	v.SetDefault("summarizer.min_length", 20)

	v.SetDefault("auth.bootstrap_sysadmins", []string{})
}

// Load reads path, falling back to defaults when path is the default file
// and it does not exist. TASKWISE_SECTION_KEY environment variables win
// over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(repositoryTypes, c.Repository.Type) {
		return fmt.Errorf("repository.type must be one of %s, got %q", strings.Join(repositoryTypes, ", "), c.Repository.Type)
	}
	if c.Repository.Type != "inmemory" && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the %s repository", c.Repository.Type)
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Archive.Retention <= 0 {
		return errors.New("archive.retention must be positive")
	}
	if (c.Notify.DiscordWebhookID == "") != (c.Notify.DiscordWebhookToken == "") {
		return errors.New("notify.discord_webhook_id and notify.discord_webhook_token go together")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

const redacted = "********"

// String renders the effective configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Summarizer.APIKey != "" {
		masked.Summarizer.APIKey = redacted
	}
	if masked.Notify.SlackWebhookURL != "" {
		masked.Notify.SlackWebhookURL = redacted
	}
	if masked.Notify.DiscordWebhookToken != "" {
		masked.Notify.DiscordWebhookToken = redacted
	}
	if masked.Database.URL != "" {
		masked.Database.URL = redacted
	}
	out, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}
