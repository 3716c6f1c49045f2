package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/importer"
	"github.com/jonathan/application-tracker/internal/tracker"
)

// ErrInvalidID indicates a path id that is not a positive integer
type ErrInvalidID struct {
	Raw string
}

func (e *ErrInvalidID) Error() string {
	return "invalid application id: " + e.Raw
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *db.NotFoundError
		validation *tracker.ValidationError
		invalidID  *ErrInvalidID
		importErr  *importer.ImportError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &invalidID), errors.Is(err, importer.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.As(err, &importErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text shown to the client for err. Unexpected errors are
// reported generically and logged by the caller.
func PublicMessage(err error) string {
	var (
		notFound   *db.NotFoundError
		validation *tracker.ValidationError
		invalidID  *ErrInvalidID
		importErr  *importer.ImportError
	)
	switch {
	case errors.As(err, &notFound):
		return "Application not found"
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &invalidID):
		return invalidID.Error()
	case errors.Is(err, importer.ErrMissingCredentials):
		return "Username and password are required."
	case errors.As(err, &importErr):
		return importErr.Error()
	default:
		return "Internal server error"
	}
}
