// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "dsl-autofill", cfg.Logger.ServiceName)
	assert.Equal(t, "https://agent.dsl.studentloan.or.th/los/login", cfg.Portal.LoginURL)
	assert.Equal(t, "https://agent.dsl.studentloan.or.th/main/disbursement-list", cfg.Portal.DisbursementURL)
	assert.Equal(t, "https://agent.dsl.studentloan.or.th/main/sign-contract-list", cfg.Portal.SignContractURL)
	assert.True(t, cfg.Browser.Attach)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "http://127.0.0.1:9222", cfg.Browser.DebuggerURL)
	assert.Equal(t, 10*time.Second, cfg.Timing.ElementWait)
	assert.Equal(t, 30*time.Second, cfg.Timing.LoginRedirectWait)
	assert.Equal(t, 3, cfg.Timing.LoginRetries)
	assert.Contains(t, cfg.Files.AllowedExtensions, ".pdf")
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
}

// -- Viper Loading Tests --

func TestNewConfigFromViperOverrides(t *testing.T) {
	yamlConfig := []byte(`
browser:
  headless: true
  attach: false
timing:
  element_wait: 3s
  login_retries: 5
portal:
  login_url: https://portal.test/login
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Browser.Attach)
	assert.Equal(t, 3*time.Second, cfg.Timing.ElementWait)
	assert.Equal(t, 5, cfg.Timing.LoginRetries)
	assert.Equal(t, "https://portal.test/login", cfg.Portal.LoginURL)
	// Untouched values keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Timing.PageLoad)
}

func TestNewConfigFromViperInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("timing.login_retries", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login_retries")
}

// -- Validation Tests --

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing login url", func(c *Config) { c.Portal.LoginURL = "" }, "portal.login_url"},
		{"missing disbursement url", func(c *Config) { c.Portal.DisbursementURL = "" }, "portal.disbursement_url"},
		{"missing sign contract url", func(c *Config) { c.Portal.SignContractURL = "" }, "portal.sign_contract_url"},
		{"attach without debugger url", func(c *Config) { c.Browser.DebuggerURL = "" }, "browser.debugger_url"},
		{"zero element wait", func(c *Config) { c.Timing.ElementWait = 0 }, "timing.element_wait"},
		{"zero page load", func(c *Config) { c.Timing.PageLoad = 0 }, "timing.page_load"},
		{"no extensions", func(c *Config) { c.Files.AllowedExtensions = nil }, "files.allowed_extensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDebuggerURLOptionalWithoutAttach(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Browser.Attach = false
	cfg.Browser.DebuggerURL = ""
	assert.NoError(t, cfg.Validate())
}

// -- File Filter Tests --

func TestAllowedExtension(t *testing.T) {
	files := FilesConfig{AllowedExtensions: []string{".pdf", ".jpg"}}

	assert.True(t, files.AllowedExtension("contract_123.pdf"))
	assert.True(t, files.AllowedExtension("SCAN.PDF"))
	assert.True(t, files.AllowedExtension("photo.Jpg"))
	assert.False(t, files.AllowedExtension("notes.txt"))
	assert.False(t, files.AllowedExtension("archive.pdf.zip"))
	assert.False(t, files.AllowedExtension("pdf"))
}
