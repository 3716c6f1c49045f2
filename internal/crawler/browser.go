package crawler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Login form selectors, tried against whatever page the portal shows first.
const (
	usernameSelector = `input[type='email'], input[name='username'], input[id='UserName'], input[name='userid']`
	passwordSelector = `input[type='password'], input[id='Password'], input[name='password']`
	submitSelector   = `button[type='submit'], input[type='submit']`
)

// Fetcher loads the page holding the applications table and returns its rendered HTML.
type Fetcher interface {
	Fetch(ctx context.Context, cfg Config) (string, error)
}

// ChromeFetcher drives a local Chrome/Chromium through chromedp.
type ChromeFetcher struct {
	// Timeout bounds the whole browser session. Zero means two minutes.
	Timeout time.Duration
	// LocateTimeout bounds the wait for the login form and the navigation link.
	// Zero means ten seconds.
	LocateTimeout time.Duration
}

func (f *ChromeFetcher) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return 2 * time.Minute
}

func (f *ChromeFetcher) locateTimeout() time.Duration {
	if f.LocateTimeout > 0 {
		return f.LocateTimeout
	}
	return 10 * time.Second
}

// Fetch opens the start URL, logs in when credentials are set, follows the navigation
// link when one is configured, then loads the target URL and snapshots its HTML.
// A login form or link that never shows up is skipped rather than treated as failure.
func (f *ChromeFetcher) Fetch(ctx context.Context, cfg Config) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", !cfg.Headful),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, f.timeout())
	defer cancel()

	start := cfg.StartURL()
	if cfg.Verbose {
		log.Printf("[crawler] Opening %s (headful=%v)", start, cfg.Headful)
	}
	if err := chromedp.Run(browserCtx, chromedp.Navigate(start)); err != nil {
		return "", &CrawlError{Message: fmt.Sprintf("failed to open %s", start), Cause: err}
	}

	if cfg.HasCredentials() {
		if err := f.login(browserCtx, cfg); err != nil {
			return "", err
		}
	}

	if cfg.NavLinkText != "" {
		if err := f.followNavLink(browserCtx, cfg); err != nil {
			return "", err
		}
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(cfg.TargetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", &CrawlError{Message: fmt.Sprintf("failed to load %s", cfg.TargetURL), Cause: err}
	}

	if cfg.Verbose {
		log.Printf("[crawler] Rendered %s: %d bytes", cfg.TargetURL, len(html))
	}
	return html, nil
}

func (f *ChromeFetcher) login(ctx context.Context, cfg Config) error {
	locateCtx, cancel := context.WithTimeout(ctx, f.locateTimeout())
	defer cancel()

	err := chromedp.Run(locateCtx,
		chromedp.WaitVisible(usernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(usernameSelector, cfg.Username, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, cfg.Password, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
	)
	if err != nil {
		if locateTimedOut(ctx, err) {
			if cfg.Verbose {
				log.Printf("[crawler] No login form found, continuing without login")
			}
			return nil
		}
		return &LoginError{Message: "failed to submit login form", Cause: err}
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(cfg.LoginWait)); err != nil {
		return &LoginError{Message: "interrupted while waiting after login", Cause: err}
	}
	return nil
}

func (f *ChromeFetcher) followNavLink(ctx context.Context, cfg Config) error {
	locateCtx, cancel := context.WithTimeout(ctx, f.locateTimeout())
	defer cancel()

	err := chromedp.Run(locateCtx, chromedp.Click(navLinkXPath(cfg.NavLinkText), chromedp.BySearch))
	if err != nil {
		if locateTimedOut(ctx, err) {
			if cfg.Verbose {
				log.Printf("[crawler] Navigation link %q not found, continuing", cfg.NavLinkText)
			}
			return nil
		}
		return &CrawlError{Message: fmt.Sprintf("failed to click %q", cfg.NavLinkText), Cause: err}
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(NavSettleWait)); err != nil {
		return &CrawlError{Message: "interrupted after navigation click", Cause: err}
	}
	return nil
}

// locateTimedOut reports whether err is the locate sub-context expiring while the
// session itself is still alive.
func locateTimedOut(session context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && session.Err() == nil
}

// navLinkXPath matches the innermost element whose text contains text, ignoring ASCII case
// and runs of whitespace.
func navLinkXPath(text string) string {
	lit := xpathLiteral(strings.ToLower(strings.Join(strings.Fields(text), " ")))
	folded := `translate(normalize-space(.), "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz")`
	return fmt.Sprintf(`//*[contains(%s, %s) and not(.//*[contains(%s, %s)])]`, folded, lit, folded, lit)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
