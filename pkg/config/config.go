package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMessage is the greeting used by the messaging workflows when none is given
const DefaultMessage = "Hi, thanks for reaching me"

// Config holds all configuration options for igbot
type Config struct {
	// Account credentials and connection settings
	Account AccountConfig `yaml:"account" json:"account"`

	// Flat files used for cross-run memory
	Files FilesConfig `yaml:"files" json:"files"`

	// Workflow behaviour and pacing
	Workflow WorkflowConfig `yaml:"workflow" json:"workflow"`

	// Posted-media ledger backend
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration for social client calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics exporter
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// AccountConfig holds the controlled account's login settings
type AccountConfig struct {
	Username   string        `yaml:"username" json:"username"`
	Password   string        `yaml:"password" json:"password"`
	Proxy      string        `yaml:"proxy" json:"proxy"`
	SecretFile string        `yaml:"secret_file" json:"secret_file"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// FilesConfig holds the paths of the line-oriented files
type FilesConfig struct {
	UsernamePool  string `yaml:"username_pool" json:"username_pool"`
	PostedMedia   string `yaml:"posted_media" json:"posted_media"`
	MessagesCSV   string `yaml:"messages_csv" json:"messages_csv"`
	ScrapePages   string `yaml:"scrape_pages" json:"scrape_pages"`
	MediaLikers   string `yaml:"media_likers" json:"media_likers"`
	LikerNames    string `yaml:"liker_names" json:"liker_names"`
	DownloadDir   string `yaml:"download_dir" json:"download_dir"`
	NormalizeSize int    `yaml:"normalize_size" json:"normalize_size"`
}

// WorkflowConfig holds message text, amounts and the fixed delays between actions
type WorkflowConfig struct {
	Message        string        `yaml:"message" json:"message"`
	Amount         int           `yaml:"amount" json:"amount"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	CSVSendDelay   time.Duration `yaml:"csv_send_delay" json:"csv_send_delay"`
	BulkDelay      time.Duration `yaml:"bulk_delay" json:"bulk_delay"`
	PromptAttempts int           `yaml:"prompt_attempts" json:"prompt_attempts"`
}

// LedgerConfig selects how posted media identifiers are persisted
type LedgerConfig struct {
	Backend    string `yaml:"backend" json:"backend"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	AtMostOnce bool   `yaml:"at_most_once" json:"at_most_once"`
	JournalDir string `yaml:"journal_dir" json:"journal_dir"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry settings for transient social client failures
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnNewFollower    bool   `yaml:"on_new_follower" json:"on_new_follower"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds the prometheus exporter address; empty disables it
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Account: AccountConfig{
			SecretFile: "secret.txt",
			UserAgent:  "Instagram 123.0.0.21.114 Android (28/9; 420dpi; 1080x2131; samsung; SM-G965F; star2qltecs; samsungexynos9810; en_US)",
			Timeout:    30 * time.Second,
		},
		Files: FilesConfig{
			UsernamePool:  "username_database.txt",
			PostedMedia:   "posted_medias.txt",
			MessagesCSV:   "messages.csv",
			ScrapePages:   "scrape.txt",
			MediaLikers:   "medialikers.txt",
			LikerNames:    "usernames.txt",
			DownloadDir:   "photos",
			NormalizeSize: 1080,
		},
		Workflow: WorkflowConfig{
			Message:        DefaultMessage,
			Amount:         1,
			RetryDelay:     60 * time.Second,
			PollInterval:   30 * time.Minute,
			CSVSendDelay:   time.Duration(86400/100) * time.Second,
			BulkDelay:      3 * time.Second,
			PromptAttempts: 5,
		},
		Ledger: LedgerConfig{
			Backend:    "file",
			SQLitePath: "igbot.db",
			AtMostOnce: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Notifications: NotificationConfig{
			Enabled:          false,
			OnNewFollower:    true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IGBOT_USERNAME"); v != "" {
		c.Account.Username = v
	}
	if v := os.Getenv("IGBOT_PASSWORD"); v != "" {
		c.Account.Password = v
	}
	if v := os.Getenv("IGBOT_PROXY"); v != "" {
		c.Account.Proxy = v
	}
	if v := os.Getenv("IGBOT_SECRET_FILE"); v != "" {
		c.Account.SecretFile = v
	}
	if v := os.Getenv("IGBOT_MESSAGE"); v != "" {
		c.Workflow.Message = v
	}
	if v := os.Getenv("IGBOT_USERNAME_POOL"); v != "" {
		c.Files.UsernamePool = v
	}
	if v := os.Getenv("IGBOT_POSTED_MEDIA"); v != "" {
		c.Files.PostedMedia = v
	}
	if v := os.Getenv("IGBOT_DOWNLOAD_DIR"); v != "" {
		c.Files.DownloadDir = v
	}
	if v := os.Getenv("IGBOT_LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("IGBOT_LEDGER_SQLITE_PATH"); v != "" {
		c.Ledger.SQLitePath = v
	}
	if v := os.Getenv("IGBOT_LEDGER_AT_MOST_ONCE"); v != "" {
		c.Ledger.AtMostOnce = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IGBOT_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGBOT_REQUESTS_PER_MINUTE: %w", err))
		} else if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("IGBOT_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGBOT_POLL_INTERVAL: %w", err))
		} else {
			c.Workflow.PollInterval = d
		}
	}
	if v := os.Getenv("IGBOT_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IGBOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IGBOT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("IGBOT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igbot.yaml",
		".igbot.yml",
		filepath.Join(home, ".config", "igbot", "config.yaml"),
		filepath.Join(home, ".config", "igbot", "config.yml"),
		filepath.Join(home, ".igbot.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Workflow.Amount < 0 {
		errs = append(errs, errors.New("repost amount cannot be negative"))
	}
	if c.Workflow.RetryDelay < 0 || c.Workflow.PollInterval < 0 ||
		c.Workflow.CSVSendDelay < 0 || c.Workflow.BulkDelay < 0 {
		errs = append(errs, errors.New("workflow delays cannot be negative"))
	}
	if c.Workflow.PromptAttempts <= 0 {
		errs = append(errs, errors.New("prompt attempts must be positive"))
	}

	if c.Files.PostedMedia == "" {
		errs = append(errs, errors.New("posted media ledger path is required"))
	}
	if c.Files.DownloadDir == "" {
		errs = append(errs, errors.New("download directory is required"))
	}

	switch strings.ToLower(c.Ledger.Backend) {
	case "file", "memory":
	case "sqlite":
		if c.Ledger.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite ledger requires sqlite_path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Account.Timeout <= 0 {
		errs = append(errs, errors.New("account timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sanitized returns a copy with the password masked, for display
func (c *Config) Sanitized() *Config {
	out := *c
	if out.Account.Password != "" {
		out.Account.Password = "********"
	}
	return &out
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only non-zero values override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Account.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Account.Password = v
	}
	if v, ok := flags["proxy"].(string); ok && v != "" {
		c.Account.Proxy = v
	}
	if v, ok := flags["message"].(string); ok && v != "" {
		c.Workflow.Message = v
	}
	if v, ok := flags["amount"].(int); ok && v > 0 {
		c.Workflow.Amount = v
	}
	if v, ok := flags["ledger-backend"].(string); ok && v != "" {
		c.Ledger.Backend = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igbot.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
