package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/driftnet/internal/pipeline"
)

type submitURLRequest struct {
	URL string `json:"url"`
}

type submitTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *Server) handleSubmitURL(c echo.Context) error {
	if s.pipeline == nil {
		return internalError(c, "Submission pipeline is not configured")
	}

	var req submitURLRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return failValidation(c, map[string]string{"url": "is required"})
	}

	output, err := s.pipeline.SubmitURL(c.Request().Context(), req.URL)
	if err != nil {
		s.logger.Error().Err(err).Str("url", req.URL).Msg("url submission failed")
		return internalError(c, "Submission failed")
	}

	return respondSubmission(c, output)
}

// respondSubmission maps pipeline outcomes onto HTTP codes. Domain
// failures are reported as unprocessable, not as server errors, and the
// full outcome travels with the response either way.
func respondSubmission(c echo.Context, output *pipeline.Output) error {
	switch output.Status {
	case pipeline.StatusSuccess:
		return successWithStatus(c, http.StatusCreated, output)
	case pipeline.StatusDuplicateDetected, pipeline.StatusUnrelatedContent:
		return success(c, output)
	default:
		return fail(c, http.StatusUnprocessableEntity, string(output.Status), output)
	}
}

func (s *Server) handleSubmitText(c echo.Context) error {
	if s.pipeline == nil {
		return internalError(c, "Submission pipeline is not configured")
	}

	var req submitTextRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}

	output, err := s.pipeline.SubmitText(c.Request().Context(), req.Title, req.Text)
	if err != nil {
		s.logger.Error().Err(err).Msg("text submission failed")
		return internalError(c, "Submission failed")
	}

	return respondSubmission(c, output)
}
