package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/news-coverage/internal/classify"
	"horse.fit/news-coverage/internal/guardrail"
	"horse.fit/news-coverage/internal/model"
	payloadschema "horse.fit/news-coverage/schema"
)

// Responses follow JSend: success carries data, fail is a client problem
// with an optional data payload, error is ours.
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

type storedResponse struct {
	Status            string `json:"status"`
	ID                string `json:"id"`
	StoredPath        string `json:"stored_path"`
	NormalizedQuarter string `json:"normalized_quarter"`
}

type duplicateResponse struct {
	DuplicateOf string `json:"duplicate_of"`
	StoredPath  string `json:"stored_path"`
}

func respond(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Status: statusSuccess, Data: data})
}

func fail(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, envelope{Status: statusFail, Message: message, Data: data})
}

func failFields(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func serverError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, envelope{
		Status:  statusError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}

// respondIngest answers 201 for a stored record and 409 for a URL that was
// already stored.
func respondIngest(c echo.Context, result model.IngestResult, quarter string) error {
	if result.DuplicateOf != "" {
		return fail(c, http.StatusConflict, "Duplicate article", duplicateResponse{
			DuplicateOf: result.DuplicateOf,
			StoredPath:  result.StoredPath,
		})
	}
	return respond(c, http.StatusCreated, storedResponse{
		Status:            "stored",
		ID:                result.ID,
		StoredPath:        result.StoredPath,
		NormalizedQuarter: quarter,
	})
}

// respondProcessError maps the client-side process failures. It reports
// false for anything that should surface as a server error.
func respondProcessError(c echo.Context, err error) (bool, error) {
	var (
		validationErr *payloadschema.ValidationError
		exhausted     *guardrail.ExhaustedError
	)
	switch {
	case errors.Is(err, classify.ErrMissingPublishDate):
		return true, failFields(c, map[string]string{"article.published_at": "published_at is required to infer the quarter"})
	case errors.As(err, &validationErr):
		return true, failFields(c, map[string]string{"record": validationErr.Error()})
	case errors.As(err, &exhausted):
		return true, fail(c, http.StatusUnprocessableEntity, exhausted.Error(), map[string]any{
			"company":  exhausted.Company,
			"in_scope": exhausted.InScope,
		})
	}
	return false, nil
}
