package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration (service mode only)
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the audit-run history database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GmailConfig holds mail access configuration. OAuth credentials come either
// from a refresh token in the environment or from a token file on disk.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenFile    string `mapstructure:"token_file"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	IMAPMailbox  string `mapstructure:"imap_mailbox"`
}

// AuditConfig holds audit pipeline configuration
type AuditConfig struct {
	MaxEmails    int    `mapstructure:"max_emails"`
	Query        string `mapstructure:"query"`
	CachePath    string `mapstructure:"cache_path"`
	ReportPath   string `mapstructure:"report_path"`
	PoolSize     int    `mapstructure:"pool_size"`
	FetchWorkers int    `mapstructure:"fetch_workers"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// SchedulerConfig holds the periodic-audit scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("gmail.user_email", "me")
	viper.SetDefault("gmail.token_file", "data/token.json")
	viper.SetDefault("gmail.use_imap", false)
	viper.SetDefault("gmail.imap_host", "imap.gmail.com")
	viper.SetDefault("gmail.imap_port", 993)
	viper.SetDefault("gmail.imap_mailbox", "INBOX")

	viper.SetDefault("audit.max_emails", 2000)
	viper.SetDefault("audit.query", "-label:trash")
	viper.SetDefault("audit.cache_path", "data/email_cache.json")
	viper.SetDefault("audit.report_path", "data/noise_report.csv")
	viper.SetDefault("audit.pool_size", 5)
	viper.SetDefault("audit.fetch_workers", 5)
	viper.SetDefault("audit.max_retries", 3)

	viper.SetDefault("scheduler.interval_minutes", 60)
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Gmail
	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.token_file", "GMAIL_TOKEN_FILE")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
	viper.BindEnv("gmail.use_imap", "GMAIL_USE_IMAP")
	viper.BindEnv("gmail.imap_host", "GMAIL_IMAP_HOST")
	viper.BindEnv("gmail.imap_port", "GMAIL_IMAP_PORT")
	viper.BindEnv("gmail.imap_user", "GMAIL_IMAP_USER")
	viper.BindEnv("gmail.imap_password", "GMAIL_IMAP_PASSWORD")
	viper.BindEnv("gmail.imap_mailbox", "GMAIL_IMAP_MAILBOX")

	// Audit
	viper.BindEnv("audit.max_emails", "AUDIT_MAX_EMAILS")
	viper.BindEnv("audit.query", "AUDIT_QUERY")
	viper.BindEnv("audit.cache_path", "AUDIT_CACHE_PATH")
	viper.BindEnv("audit.report_path", "AUDIT_REPORT_PATH")
	viper.BindEnv("audit.pool_size", "AUDIT_POOL_SIZE")
	viper.BindEnv("audit.fetch_workers", "AUDIT_FETCH_WORKERS")
	viper.BindEnv("audit.max_retries", "AUDIT_MAX_RETRIES")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration shared by every command
func (c *Config) Validate() error {
	if c.Audit.MaxEmails <= 0 {
		return fmt.Errorf("audit max_emails must be greater than 0")
	}
	if c.Audit.CachePath == "" || c.Audit.ReportPath == "" {
		return fmt.Errorf("audit cache_path and report_path are required")
	}
	if c.Audit.PoolSize <= 0 || c.Audit.FetchWorkers <= 0 {
		return fmt.Errorf("audit pool_size and fetch_workers must be greater than 0")
	}
	if c.Audit.MaxRetries <= 0 {
		return fmt.Errorf("audit max_retries must be greater than 0")
	}
	if c.Gmail.UseIMAP {
		if c.Gmail.IMAPUser == "" || c.Gmail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}
	return nil
}

// ValidateServer validates the additional configuration service mode needs
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}
	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}
	return nil
}
