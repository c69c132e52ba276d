// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Timing  TimingConfig  `mapstructure:"timing" yaml:"timing"`
	Files   FilesConfig   `mapstructure:"files" yaml:"files"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PortalConfig holds the portal entry points the workflows navigate to.
type PortalConfig struct {
	LoginURL        string `mapstructure:"login_url" yaml:"login_url"`
	DisbursementURL string `mapstructure:"disbursement_url" yaml:"disbursement_url"`
	SignContractURL string `mapstructure:"sign_contract_url" yaml:"sign_contract_url"`
}

// BrowserConfig holds settings for the Chrome instance driving the portal.
type BrowserConfig struct {
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
	Attach       bool   `mapstructure:"attach" yaml:"attach"`
	DebuggerURL  string `mapstructure:"debugger_url" yaml:"debugger_url"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`
}

// TimingConfig tunes how long the workflows wait between and within steps.
// The portal runs a single page Angular app, so most operations need a
// settle pause after the spinner overlay clears.
type TimingConfig struct {
	ElementWait       time.Duration `mapstructure:"element_wait" yaml:"element_wait"`
	PageLoad          time.Duration `mapstructure:"page_load" yaml:"page_load"`
	StepPause         time.Duration `mapstructure:"step_pause" yaml:"step_pause"`
	UploadSettle      time.Duration `mapstructure:"upload_settle" yaml:"upload_settle"`
	LoginRedirectWait time.Duration `mapstructure:"login_redirect_wait" yaml:"login_redirect_wait"`
	LoginRetries      int           `mapstructure:"login_retries" yaml:"login_retries"`
	LoginRetryBackoff time.Duration `mapstructure:"login_retry_backoff" yaml:"login_retry_backoff"`
	InterItemDelay    time.Duration `mapstructure:"inter_item_delay" yaml:"inter_item_delay"`
}

// FilesConfig controls which files the batch processor will pick up.
type FilesConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
}

// AllowedExtension reports whether a filename carries one of the accepted
// extensions. The comparison is case insensitive.
func (f FilesConfig) AllowedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range f.AllowedExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dsl-autofill")
	v.SetDefault("logger.log_file", "autofill.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Portal --
	v.SetDefault("portal.login_url", "https://agent.dsl.studentloan.or.th/los/login")
	// Only the login page lives under /los; the list pages do not.
	v.SetDefault("portal.disbursement_url", "https://agent.dsl.studentloan.or.th/main/disbursement-list")
	v.SetDefault("portal.sign_contract_url", "https://agent.dsl.studentloan.or.th/main/sign-contract-list")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.attach", true)
	v.SetDefault("browser.debugger_url", "http://127.0.0.1:9222")
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)

	// -- Timing --
	v.SetDefault("timing.element_wait", "10s")
	v.SetDefault("timing.page_load", "10s")
	v.SetDefault("timing.step_pause", "2s")
	v.SetDefault("timing.upload_settle", "2s")
	v.SetDefault("timing.login_redirect_wait", "30s")
	v.SetDefault("timing.login_retries", 3)
	v.SetDefault("timing.login_retry_backoff", "5s")
	v.SetDefault("timing.inter_item_delay", "2s")

	// -- Files --
	v.SetDefault("files.allowed_extensions", []string{".pdf", ".doc", ".docx", ".txt", ".jpg", ".png"})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" {
		return fmt.Errorf("portal.login_url is a required configuration field")
	}
	if c.Portal.DisbursementURL == "" {
		return fmt.Errorf("portal.disbursement_url is a required configuration field")
	}
	if c.Portal.SignContractURL == "" {
		return fmt.Errorf("portal.sign_contract_url is a required configuration field")
	}
	if c.Browser.Attach && c.Browser.DebuggerURL == "" {
		return fmt.Errorf("browser.debugger_url is required when browser.attach is enabled")
	}
	if c.Timing.LoginRetries <= 0 {
		return fmt.Errorf("timing.login_retries must be a positive integer")
	}
	if c.Timing.ElementWait <= 0 {
		return fmt.Errorf("timing.element_wait must be a positive duration")
	}
	if c.Timing.PageLoad <= 0 {
		return fmt.Errorf("timing.page_load must be a positive duration")
	}
	if len(c.Files.AllowedExtensions) == 0 {
		return fmt.Errorf("files.allowed_extensions must not be empty")
	}
	return nil
}
