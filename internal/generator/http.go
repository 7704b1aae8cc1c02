package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/question"
	httperrors "github.com/copycats/copycat-api/pkg/http/errors"
)

const maxBodyBytes = 1 << 20

// HTTPHandler exposes the generation endpoints. All of them take POST JSON.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "generator_http").Logger(),
	}
}

type requestBody struct {
	TestNumber     airtable.FlexString `json:"testNumber"`
	QuestionNumber airtable.FlexString `json:"questionNumber"`
	Question       string              `json:"question"`
	Latex          string              `json:"latex"`
	Photo          json.RawMessage     `json:"photo"`
}

func (b requestBody) key() question.Key {
	return question.Key{TestNumber: b.TestNumber.String(), QuestionNumber: b.QuestionNumber.String()}
}

func (b requestBody) hasPhoto() bool {
	p := bytes.TrimSpace(b.Photo)
	return len(p) > 0 && !bytes.Equal(p, []byte("null")) && !bytes.Equal(p, []byte(`""`)) && !bytes.Equal(p, []byte("[]"))
}

func decodeBody(w http.ResponseWriter, r *http.Request) (requestBody, bool) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return requestBody{}, false
	}
	var body requestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return requestBody{}, false
	}
	return body, true
}

// HandleGenerateClone serves POST /generate-clone.
func (h *HTTPHandler) HandleGenerateClone(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GenerateClone(r.Context(), CloneRequest{
		Key:      body.key(),
		Latex:    body.Latex,
		HasPhoto: body.hasPhoto(),
	})
	switch {
	case errors.Is(err, question.ErrMissingKey):
		httperrors.RespondBadRequest(w, "Test number and question number are required")
	case errors.Is(err, question.ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Question not found")
	case errors.Is(err, ErrMissingContent):
		httperrors.RespondBadRequest(w, "Question content not available")
	case errors.Is(err, ErrProviderUnavailable):
		httperrors.RespondError(w, http.StatusServiceUnavailable, "Clone generation is not configured")
	case err != nil:
		h.logger.Error().Err(err).Msg("generate clone failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, err.Error(), "Failed to generate or save clone question")
	default:
		httperrors.RespondJSON(w, http.StatusOK, res)
	}
}

// HandleHint serves POST /get-hint.
func (h *HTTPHandler) HandleHint(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	hint, err := h.svc.Hint(r.Context(), body.Question, body.key())
	switch {
	case errors.Is(err, question.ErrMissingKey):
		httperrors.RespondBadRequest(w, "Question content or test/question numbers are required")
	case errors.Is(err, question.ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Question not found")
	case errors.Is(err, ErrProviderUnavailable):
		httperrors.RespondError(w, http.StatusServiceUnavailable, "Hint generation is not configured")
	case err != nil:
		h.logger.Error().Err(err).Msg("hint failed")
		httperrors.RespondInternalError(w, "Failed to generate hint")
	default:
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"hint": hint})
	}
}

// HandleHints serves POST /get-hints.
func (h *HTTPHandler) HandleHints(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	hints, err := h.svc.Hints(r.Context(), body.key(), body.Question)
	switch {
	case errors.Is(err, question.ErrMissingKey):
		httperrors.RespondBadRequest(w, "Missing required parameters")
	case err != nil:
		h.logger.Error().Err(err).Msg("hints failed")
		httperrors.RespondInternalError(w, "Internal server error")
	default:
		httperrors.RespondJSON(w, http.StatusOK, hints)
	}
}

// HandleExplanation serves POST /get-explanation.
func (h *HTTPHandler) HandleExplanation(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	explanation, err := h.svc.Explain(r.Context(), body.key(), body.Question)
	switch {
	case errors.Is(err, question.ErrMissingKey):
		httperrors.RespondBadRequest(w, "Missing required parameters")
	case errors.Is(err, ErrProviderUnavailable):
		httperrors.RespondError(w, http.StatusServiceUnavailable, "Explanation generation is not configured")
	case err != nil:
		h.logger.Error().Err(err).Msg("explanation failed")
		httperrors.RespondInternalError(w, "Failed to generate explanation")
	default:
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
	}
}
