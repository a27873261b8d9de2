package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/news-coverage/internal/globaltime"
	"horse.fit/news-coverage/internal/pipeline"
	payloadschema "horse.fit/news-coverage/schema"
)

func (s *Server) handleHealth(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]any{
		"service": "news-coverage",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleIngestArticle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	result, record, err := s.ingester.IngestPayload(c.Request().Context(), json.RawMessage(body))
	if err != nil {
		var validationErr *payloadschema.ValidationError
		if errors.As(err, &validationErr) {
			return failFields(c, map[string]string{"payload": validationErr.Error()})
		}
		s.logger.Error().Err(err).Msg("ingest article failed")
		return serverError(c, "Failed to store article")
	}

	return respondIngest(c, result, record.Quarter)
}

func (s *Server) handleProcessArticle(c echo.Context) error {
	if s.processor == nil {
		return fail(c, http.StatusServiceUnavailable, "Article processing is not configured", nil)
	}

	var req pipeline.Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid JSON body", nil)
	}
	if fieldErrors := validateProcessRequest(req); len(fieldErrors) > 0 {
		return failFields(c, fieldErrors)
	}

	result, err := s.processor.Process(c.Request().Context(), req)
	if err != nil {
		if handled, respErr := respondProcessError(c, err); handled {
			return respErr
		}
		s.logger.Error().Err(err).Str("url", req.Article.URL).Msg("process article failed")
		return serverError(c, "Failed to process article")
	}

	status := http.StatusCreated
	if result.Ingest.DuplicateOf != "" {
		status = http.StatusOK
	}
	return respond(c, status, result)
}

func validateProcessRequest(req pipeline.Request) map[string]string {
	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Article.Title) == "" {
		fieldErrors["article.title"] = "title is required"
	}
	if strings.TrimSpace(req.Article.URL) == "" {
		fieldErrors["article.url"] = "url is required"
	}
	if req.Override != nil && strings.TrimSpace(req.Override.Category) == "" {
		fieldErrors["override.category"] = "category is required when override is set"
	}
	return fieldErrors
}
