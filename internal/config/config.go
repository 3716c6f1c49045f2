// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/application-tracker/internal/crawler"
)

// Config is a crawl configuration loaded from a JSON file.
// All fields are optional; anything left empty falls through to the preset and the
// built-in defaults, and any flag given on the command line wins over the file.
type Config struct {
	Preset    string `json:"preset,omitempty"`     // Site preset name
	LoginURL  string `json:"login_url,omitempty"`  // Page with the login form
	TargetURL string `json:"target_url,omitempty"` // Page with the applications table
	Username  string `json:"username,omitempty"`   // Portal username
	Password  string `json:"password,omitempty"`   // Portal password

	// Selectors
	RowSelector      string `json:"row_selector,omitempty"`
	CompanySelector  string `json:"company_selector,omitempty"`
	RoleSelector     string `json:"role_selector,omitempty"`
	StatusSelector   string `json:"status_selector,omitempty"`
	LocationSelector string `json:"location_selector,omitempty"`

	// Behavior
	NavLinkText string `json:"nav_link_text,omitempty"` // Link clicked after login
	LoginWaitMS int    `json:"login_wait_ms,omitempty"` // Wait after submitting the login form
	SourceLabel string `json:"source_label,omitempty"`  // Stored in each application's source
	Headful     bool   `json:"headful,omitempty"`       // Show the browser window
	Verbose     bool   `json:"verbose,omitempty"`       // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"`  // SQLite path or PostgreSQL URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by crawler.Config.Validate after merging.
func (c *Config) Validate() error {
	if c.Preset != "" {
		if _, err := crawler.Preset(c.Preset); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	if c.LoginWaitMS < 0 {
		return fmt.Errorf("config error: 'login_wait_ms' must be non-negative")
	}

	urls := []struct{ name, raw string }{
		{"login_url", c.LoginURL},
		{"target_url", c.TargetURL},
	}
	for _, f := range urls {
		if f.raw == "" {
			continue
		}
		u, err := url.Parse(f.raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: '%s' must be an absolute URL: %s", f.name, f.raw)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to put environment-derived values underneath the file.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&result.Preset, defaults.Preset)
	fill(&result.LoginURL, defaults.LoginURL)
	fill(&result.TargetURL, defaults.TargetURL)
	fill(&result.Username, defaults.Username)
	fill(&result.Password, defaults.Password)
	fill(&result.RowSelector, defaults.RowSelector)
	fill(&result.CompanySelector, defaults.CompanySelector)
	fill(&result.RoleSelector, defaults.RoleSelector)
	fill(&result.StatusSelector, defaults.StatusSelector)
	fill(&result.LocationSelector, defaults.LocationSelector)
	fill(&result.NavLinkText, defaults.NavLinkText)
	fill(&result.SourceLabel, defaults.SourceLabel)
	fill(&result.DatabaseURL, defaults.DatabaseURL)

	if result.LoginWaitMS == 0 {
		result.LoginWaitMS = defaults.LoginWaitMS
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Crawl converts the file into a crawler overlay. Preset resolution is left to the caller
// so that the preset sits underneath the file.
func (c *Config) Crawl() crawler.Config {
	return crawler.Config{
		LoginURL:  c.LoginURL,
		TargetURL: c.TargetURL,
		Username:  c.Username,
		Password:  c.Password,
		Selectors: crawler.Selectors{
			Row:      c.RowSelector,
			Company:  c.CompanySelector,
			Role:     c.RoleSelector,
			Status:   c.StatusSelector,
			Location: c.LocationSelector,
		},
		NavLinkText: c.NavLinkText,
		LoginWait:   time.Duration(c.LoginWaitMS) * time.Millisecond,
		Headful:     c.Headful,
		SourceLabel: c.SourceLabel,
		Verbose:     c.Verbose,
	}
}
