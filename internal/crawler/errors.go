package crawler

import "fmt"

// CrawlError represents a failure to load or read the portal pages.
type CrawlError struct {
	Message string
	Cause   error
}

func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl error: %s", e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// LoginError represents a login attempt that failed for a reason other than the form
// not showing up in time.
type LoginError struct {
	Message string
	Cause   error
}

func (e *LoginError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("login error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("login error: %s", e.Message)
}

func (e *LoginError) Unwrap() error {
	return e.Cause
}

// ExtractionError represents HTML that could not be parsed into rows.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
