// Package importer runs a portal crawl in a child process so that portal credentials
// and the browser never live inside the web server process.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Environment variables the child reads its credentials and store from.
const (
	EnvUsername    = "WW_USERNAME"
	EnvPassword    = "WW_PASSWORD"
	EnvDatabaseURL = "DATABASE_URL"
)

// DefaultMessage is reported when a successful crawl prints nothing.
const DefaultMessage = "Imported applications."

// ErrMissingCredentials is returned before any process starts when either credential is blank.
var ErrMissingCredentials = errors.New("username and password are required")

var validate = validator.New()

// Credentials are the portal login passed to the child.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ImportError carries the child's own explanation of why the crawl failed.
type ImportError struct {
	RunID  string
	Detail string
	Cause  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("Import failed: %s", e.Detail)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// Runner launches the crawl subcommand of an executable.
type Runner struct {
	// Executable defaults to the running binary.
	Executable string
	// Args defaults to DefaultArgs.
	Args []string
	// DatabaseURL is forwarded in the child's DATABASE_URL so the child writes to the
	// same store. It stays off the command line, which other users can list.
	DatabaseURL string
	// Env is appended to the inherited environment before the credentials.
	Env []string
	// Timeout bounds the child. Zero means five minutes.
	Timeout time.Duration
}

// DefaultArgs runs the WaterlooWorks preset.
var DefaultArgs = []string{"crawl", "--preset", "waterlooworks"}

// NewRunner creates a Runner for the running binary.
func NewRunner(databaseURL string) *Runner {
	return &Runner{DatabaseURL: databaseURL}
}

func (r *Runner) args() []string {
	args := DefaultArgs
	if len(r.Args) > 0 {
		args = r.Args
	}
	return append([]string(nil), args...)
}

// env is the child's environment: the inherited one, r.Env, the store and the credentials.
func (r *Runner) env(creds Credentials) []string {
	env := append(os.Environ(), r.Env...)
	if r.DatabaseURL != "" {
		env = append(env, EnvDatabaseURL+"="+r.DatabaseURL)
	}
	return append(env, EnvUsername+"="+creds.Username, EnvPassword+"="+creds.Password)
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 5 * time.Minute
}

// Run executes one crawl and waits for it. On success it returns the child's trimmed
// stdout, or DefaultMessage when that is empty. On failure it returns *ImportError whose
// detail is stderr, else stdout, else the process error.
func (r *Runner) Run(ctx context.Context, creds Credentials) (string, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Password = strings.TrimSpace(creds.Password)
	if err := validate.Struct(creds); err != nil {
		return "", ErrMissingCredentials
	}

	exe := r.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		exe = self
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, exe, r.args()...)
	cmd.Env = r.env(creds)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Printf("[import] Run %s: starting crawl", runID)
	start := time.Now()
	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = out
		}
		if detail == "" {
			detail = err.Error()
		}
		log.Printf("[import] Run %s: failed after %s: %v", runID, time.Since(start).Round(time.Millisecond), err)
		return "", &ImportError{RunID: runID, Detail: detail, Cause: err}
	}

	log.Printf("[import] Run %s: finished in %s", runID, time.Since(start).Round(time.Millisecond))
	if out == "" {
		return DefaultMessage, nil
	}
	return out, nil
}
