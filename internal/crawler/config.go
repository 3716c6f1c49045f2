// Package crawler logs into a job portal with a headless browser, scrapes the table of
// applications on one page and reconciles each row into the store.
package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Built-in defaults, used for any field neither a preset, a config file nor a flag sets.
const (
	DefaultRowSelector     = "table tr"
	DefaultCompanySelector = "td:nth-child(1)"
	DefaultRoleSelector    = "td:nth-child(2)"
	DefaultStatusSelector  = "td:nth-child(3)"
	DefaultLoginWait       = 4 * time.Second
	DefaultSourceLabel     = "Crawler"

	// NavSettleWait is how long the page gets after clicking the navigation link.
	NavSettleWait = 1500 * time.Millisecond
)

// Selectors locate the application rows and the fields inside each row.
// Field selectors are evaluated relative to the row; Location is optional.
type Selectors struct {
	Row      string
	Company  string
	Role     string
	Status   string
	Location string
}

// Config describes one crawl.
type Config struct {
	LoginURL    string
	TargetURL   string
	Username    string
	Password    string
	Selectors   Selectors
	NavLinkText string
	LoginWait   time.Duration
	Headful     bool
	SourceLabel string
	Verbose     bool
}

// Defaults returns the built-in configuration. It has no URLs.
func Defaults() Config {
	return Config{
		Selectors: Selectors{
			Row:     DefaultRowSelector,
			Company: DefaultCompanySelector,
			Role:    DefaultRoleSelector,
			Status:  DefaultStatusSelector,
		},
		LoginWait:   DefaultLoginWait,
		SourceLabel: DefaultSourceLabel,
	}
}

const waterlooWorksDashboard = "https://waterlooworks.uwaterloo.ca/myAccount/dashboard.htm"

// Preset returns the named site preset. Only the fields the preset fixes are set.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "waterlooworks":
		return Config{
			LoginURL:  waterlooWorksDashboard,
			TargetURL: waterlooWorksDashboard,
			Selectors: Selectors{
				Row:      "table tbody tr",
				Company:  "td:nth-child(2)",
				Role:     "td:nth-child(3)",
				Status:   "td:nth-child(4)",
				Location: "td:nth-child(5)",
			},
			NavLinkText: "Postings / Applications",
			SourceLabel: "WaterlooWorks",
		}, nil
	default:
		return Config{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
}

// PresetNames lists the presets Preset accepts.
func PresetNames() []string {
	return []string{"waterlooworks"}
}

// Merge returns c with every non-zero field of over applied on top.
// Booleans can only be switched on by over.
func (c Config) Merge(over Config) Config {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&c.LoginURL, over.LoginURL)
	pick(&c.TargetURL, over.TargetURL)
	pick(&c.Username, over.Username)
	pick(&c.Password, over.Password)
	pick(&c.Selectors.Row, over.Selectors.Row)
	pick(&c.Selectors.Company, over.Selectors.Company)
	pick(&c.Selectors.Role, over.Selectors.Role)
	pick(&c.Selectors.Status, over.Selectors.Status)
	pick(&c.Selectors.Location, over.Selectors.Location)
	pick(&c.NavLinkText, over.NavLinkText)
	pick(&c.SourceLabel, over.SourceLabel)
	if over.LoginWait != 0 {
		c.LoginWait = over.LoginWait
	}
	c.Headful = c.Headful || over.Headful
	c.Verbose = c.Verbose || over.Verbose
	return c
}

// StartURL is the first page the browser opens.
func (c Config) StartURL() string {
	if c.LoginURL != "" {
		return c.LoginURL
	}
	return c.TargetURL
}

// HasCredentials reports whether a login should be attempted.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// Validate checks that the crawl can run: a target URL, the required selectors, all of
// them parseable, and a non-negative login wait.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return fmt.Errorf("crawl config: target URL is required")
	}
	required := []struct {
		name, value string
	}{
		{"row", c.Selectors.Row},
		{"company", c.Selectors.Company},
		{"role", c.Selectors.Role},
		{"status", c.Selectors.Status},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("crawl config: %s selector is required", r.name)
		}
		if _, err := cascadia.ParseGroup(r.value); err != nil {
			return fmt.Errorf("crawl config: invalid %s selector %q: %w", r.name, r.value, err)
		}
	}
	if c.Selectors.Location != "" {
		if _, err := cascadia.ParseGroup(c.Selectors.Location); err != nil {
			return fmt.Errorf("crawl config: invalid location selector %q: %w", c.Selectors.Location, err)
		}
	}
	if c.LoginWait < 0 {
		return fmt.Errorf("crawl config: login wait must be non-negative")
	}
	return nil
}
