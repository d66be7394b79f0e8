// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName                    string   `mapstructure:"appname"`
	AppPort                    string   `mapstructure:"appport"`
	Environment                string   `mapstructure:"environment"`
	LogLevel                   LogLevel `mapstructure:"loglevel"`
	PrivateKey                 string   `mapstructure:"privatekey"`
	LoginSessionTimeoutSeconds int      `mapstructure:"loginsessiontimeoutseconds"`
	AdminEmail                 string   `mapstructure:"adminemail"`

	// PublicURL is the externally reachable base URL embedded in tracking links.
	PublicURL string `mapstructure:"publicurl"`

	// File paths
	DatabasePath    string `mapstructure:"storagepath"`
	DatabaseName    string `mapstructure:"-"` // Derived from other settings
	GeoDBPath       string `mapstructure:"geodbpath"`
	PublicDirectory string `mapstructure:"publicdir"`

	// Geolocation fallback API (ip-api.com compatible)
	GeoAPIURL            string `mapstructure:"geoapiurl"`
	GeoAPITimeoutSeconds int    `mapstructure:"geoapitimeoutseconds"`
	GeoCacheTTLSeconds   int    `mapstructure:"geocachettlseconds"`

	// Mail settings
	SMTPHost     string `mapstructure:"smtphost"`
	SMTPPort     int    `mapstructure:"smtpport"`
	SMTPUsername string `mapstructure:"smtpusername"`
	SMTPPassword string `mapstructure:"smtppassword"`
	SMTPFrom     string `mapstructure:"smtpfrom"`
	SMTPUseSSL   bool   `mapstructure:"smtpusessl"`
	SMTPUseTLS   bool   `mapstructure:"smtpusetls"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Campaign settings
	CampaignTTLDays int `mapstructure:"campaignttldays"`
	MaxRecipients   int `mapstructure:"maxrecipients"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "phishly")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("loginsessiontimeoutseconds", 604800) // 1 week
		v.SetDefault("publicurl", "http://localhost:3000")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("publicdir", "web/dist/assets")
		v.SetDefault("geoapiurl", "http://ip-api.com/json")
		v.SetDefault("geoapitimeoutseconds", 2)
		v.SetDefault("geocachettlseconds", 3600)
		v.SetDefault("smtpport", 587)
		v.SetDefault("smtpusetls", true)
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("jobintervalseconds", 3600)
		v.SetDefault("campaignttldays", 30)
		v.SetDefault("maxrecipients", 100)

		v.BindEnv("appname", "PHISHLY_APP_NAME")
		v.BindEnv("appport", "PHISHLY_APP_PORT")
		v.BindEnv("environment", "PHISHLY_ENV")
		v.BindEnv("loglevel", "PHISHLY_LOG_LEVEL")
		v.BindEnv("privatekey", "PHISHLY_PRIVATE_KEY")
		v.BindEnv("loginsessiontimeoutseconds", "PHISHLY_LOGIN_SESSION_TIMEOUT_SECONDS")
		v.BindEnv("adminemail", "PHISHLY_ADMIN_EMAIL")
		v.BindEnv("publicurl", "PHISHLY_PUBLIC_URL")
		v.BindEnv("storagepath", "PHISHLY_STORAGE_PATH")
		v.BindEnv("geodbpath", "PHISHLY_GEO_DB_PATH")
		v.BindEnv("publicdir", "PHISHLY_PUBLIC_DIR")
		v.BindEnv("geoapiurl", "PHISHLY_GEO_API_URL")
		v.BindEnv("geoapitimeoutseconds", "PHISHLY_GEO_API_TIMEOUT_SECONDS")
		v.BindEnv("geocachettlseconds", "PHISHLY_GEO_CACHE_TTL_SECONDS")
		v.BindEnv("smtphost", "PHISHLY_SMTP_HOST")
		v.BindEnv("smtpport", "PHISHLY_SMTP_PORT")
		v.BindEnv("smtpusername", "PHISHLY_SMTP_USERNAME")
		v.BindEnv("smtppassword", "PHISHLY_SMTP_PASSWORD")
		v.BindEnv("smtpfrom", "PHISHLY_SMTP_FROM")
		v.BindEnv("smtpusessl", "PHISHLY_SMTP_USE_SSL")
		v.BindEnv("smtpusetls", "PHISHLY_SMTP_USE_TLS")
		v.BindEnv("logsdir", "PHISHLY_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "PHISHLY_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "PHISHLY_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "PHISHLY_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "PHISHLY_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "PHISHLY_DB_MAX_IDLE_CONNS")
		v.BindEnv("jobintervalseconds", "PHISHLY_JOB_INTERVAL_SECONDS")
		v.BindEnv("campaignttldays", "PHISHLY_CAMPAIGN_TTL_DAYS")
		v.BindEnv("maxrecipients", "PHISHLY_MAX_RECIPIENTS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		// Private key signs sessions; production must not run on the default.
		defaultKey := "88888888888888888888888888888888"
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique PHISHLY_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.CampaignTTLDays <= 0 {
		return fmt.Errorf("invalid campaign TTL: %d days", c.CampaignTTLDays)
	}
	if c.MaxRecipients <= 0 {
		return fmt.Errorf("invalid max recipients: %d", c.MaxRecipients)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// LoginURL returns the absolute URL of the login surface, the default
// redirect target for tracking links.
func (c *Config) LoginURL() string {
	return c.PublicURL + "/login"
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return "/"
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetLoginSessionTimeout returns the login session timeout in seconds.
func (c *Config) GetLoginSessionTimeout() int {
	return c.LoginSessionTimeoutSeconds
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// Test keeps a single connection for stability; otherwise allow concurrent reads.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
