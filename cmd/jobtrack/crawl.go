package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/application-tracker/internal/config"
	"github.com/jonathan/application-tracker/internal/crawler"
	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/observability"
	"github.com/jonathan/application-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Import applications from a job portal",
	Long: `Logs into a job portal with a headless browser, scrapes the applications table and
upserts every complete row into the store, keyed by company and role.

Settings are resolved per field: explicit flag, then --config file, then --preset, then
the built-in defaults. Credentials default to WW_USERNAME and WW_PASSWORD.`,
	RunE: runCrawl,
}

// crawlFlags holds the raw flag values; only flags the user set are applied.
type crawlFlags struct {
	preset           string
	loginURL         string
	targetURL        string
	username         string
	password         string
	rowSelector      string
	companySelector  string
	roleSelector     string
	statusSelector   string
	locationSelector string
	navLinkText      string
	loginWait        time.Duration
	headful          bool
	sourceLabel      string
	configPath       string
	databaseURL      string
	verbose          bool
	summary          bool
}

var crawlOpts crawlFlags

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlOpts.preset, "preset", "", "Site preset (available: waterlooworks)")
	f.StringVar(&crawlOpts.loginURL, "login-url", "", "Page with the login form")
	f.StringVar(&crawlOpts.targetURL, "target-url", "", "Page with the applications table")
	f.StringVar(&crawlOpts.username, "username", "", "Portal username (default: WW_USERNAME env var)")
	f.StringVar(&crawlOpts.password, "password", "", "Portal password (default: WW_PASSWORD env var)")
	f.StringVar(&crawlOpts.rowSelector, "row-selector", crawler.DefaultRowSelector, "CSS selector for application rows")
	f.StringVar(&crawlOpts.companySelector, "company-selector", crawler.DefaultCompanySelector, "CSS selector for the company cell, relative to the row")
	f.StringVar(&crawlOpts.roleSelector, "role-selector", crawler.DefaultRoleSelector, "CSS selector for the role cell, relative to the row")
	f.StringVar(&crawlOpts.statusSelector, "status-selector", crawler.DefaultStatusSelector, "CSS selector for the status cell, relative to the row")
	f.StringVar(&crawlOpts.locationSelector, "location-selector", "", "CSS selector for the location cell, relative to the row (optional)")
	f.StringVar(&crawlOpts.navLinkText, "nav-link-text", "", "Text of a link to click after login")
	f.DurationVar(&crawlOpts.loginWait, "login-wait", crawler.DefaultLoginWait, "Wait after submitting the login form")
	f.BoolVar(&crawlOpts.headful, "headful", false, "Show the browser window")
	f.StringVar(&crawlOpts.sourceLabel, "source-label", crawler.DefaultSourceLabel, "Source stored on imported applications")
	f.StringVarP(&crawlOpts.configPath, "config", "c", "", "Path to a JSON crawl config file")
	f.StringVar(&crawlOpts.databaseURL, "database-url", "", "SQLite path or PostgreSQL URL (default: DATABASE_URL env var or jobtracker.db)")
	f.BoolVarP(&crawlOpts.verbose, "verbose", "v", false, "Print detailed debug information")
	f.BoolVar(&crawlOpts.summary, "summary", false, "Print a summary box after the import")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, databaseURL, err := resolveCrawlConfig(cmd.Flags().Changed, crawlOpts, config.Crawl())
	if err != nil {
		return err
	}
	if cfg.Verbose {
		// Never print cfg itself: it carries the password.
		log.Printf("[crawl] Target %s, rows %q, store %s, login=%v", cfg.TargetURL, cfg.Selectors.Row, databaseURL, cfg.HasCredentials())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	result, err := crawler.Sync(ctx, cfg, &crawler.ChromeFetcher{}, tracker.NewReconciler(store, nil), nil)
	if err != nil {
		if result.Imported > 0 {
			log.Printf("[crawl] %d applications were written before the failure", result.Imported)
		}
		return err
	}

	if crawlOpts.summary {
		observability.NewPrinter(os.Stdout).PrintSyncResult(cfg.TargetURL, result)
	}
	_, _ = fmt.Fprintln(os.Stdout, result.Message())
	return nil
}

// resolveCrawlConfig layers the crawl settings: built-in defaults, then the preset, then the
// config file (with env values underneath it), then every flag for which changed reports
// true. It also returns the store URL.
func resolveCrawlConfig(changed func(string) bool, f crawlFlags, env config.Config) (crawler.Config, string, error) {
	file := &config.Config{}
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return crawler.Config{}, "", err
		}
		if err := loaded.Validate(); err != nil {
			return crawler.Config{}, "", err
		}
		file = loaded
	}
	fileCfg := file.MergeWithDefaults(env)

	presetName := fileCfg.Preset
	if changed("preset") {
		presetName = f.preset
	}

	cfg := crawler.Defaults()
	if presetName != "" {
		preset, err := crawler.Preset(presetName)
		if err != nil {
			return crawler.Config{}, "", err
		}
		cfg = cfg.Merge(preset)
	}
	cfg = cfg.Merge(fileCfg.Crawl())

	var overlay crawler.Config
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	set("login-url", &overlay.LoginURL, f.loginURL)
	set("target-url", &overlay.TargetURL, f.targetURL)
	set("username", &overlay.Username, f.username)
	set("password", &overlay.Password, f.password)
	set("row-selector", &overlay.Selectors.Row, f.rowSelector)
	set("company-selector", &overlay.Selectors.Company, f.companySelector)
	set("role-selector", &overlay.Selectors.Role, f.roleSelector)
	set("status-selector", &overlay.Selectors.Status, f.statusSelector)
	set("location-selector", &overlay.Selectors.Location, f.locationSelector)
	set("nav-link-text", &overlay.NavLinkText, f.navLinkText)
	set("source-label", &overlay.SourceLabel, f.sourceLabel)
	overlay.Headful = changed("headful") && f.headful
	overlay.Verbose = changed("verbose") && f.verbose
	cfg = cfg.Merge(overlay)
	// Merge skips zero durations, and --login-wait 0 is a valid request.
	if changed("login-wait") {
		if f.loginWait < 0 {
			return crawler.Config{}, "", fmt.Errorf("--login-wait must be non-negative")
		}
		cfg.LoginWait = f.loginWait
	}

	databaseURL := fileCfg.DatabaseURL
	if changed("database-url") && f.databaseURL != "" {
		databaseURL = f.databaseURL
	}
	if databaseURL == "" {
		databaseURL = config.DefaultDatabaseURL
	}

	return cfg, databaseURL, nil
}
