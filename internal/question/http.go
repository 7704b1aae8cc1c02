package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
	httperrors "github.com/copycats/copycat-api/pkg/http/errors"
)

// HTTPHandler serves the viewer's read actions on a single endpoint, selected
// by the "action" query parameter.
type HTTPHandler struct {
	svc     *Service
	logger  zerolog.Logger
	actions map[string]http.HandlerFunc
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	h := &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "question_http").Logger(),
	}
	h.actions = map[string]http.HandlerFunc{
		"getTestNumbers":        h.getTestNumbers,
		"getQuestionNumbers":    h.getQuestionNumbers,
		"getQuestionDetails":    h.getQuestionDetails,
		"getCorrectAnswer":      h.getCorrectAnswer,
		"getExplanation":        h.getExplanation,
		"getCloneQuestions":     h.getCloneQuestions,
		"getSkills":             h.getSkills,
		"getWorksheetQuestions": h.getWorksheetQuestions,
		"getWorksheetClones":    h.getWorksheetClones,
	}
	return h
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	action := r.URL.Query().Get("action")
	fn, ok := h.actions[action]
	if !ok {
		h.logger.Debug().Str("action", action).Msg("unknown action")
		httperrors.RespondNotFound(w, "Action not found")
		return
	}
	fn(w, r)
}

func keyFromQuery(r *http.Request) Key {
	q := r.URL.Query()
	return Key{TestNumber: q.Get("testNumber"), QuestionNumber: q.Get("questionNumber")}
}

func (h *HTTPHandler) getTestNumbers(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.svc.TestNumbers(r.Context())
	if err != nil {
		h.internalError(w, "getTestNumbers", err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, numbers)
}

func (h *HTTPHandler) getQuestionNumbers(w http.ResponseWriter, r *http.Request) {
	testNumber := r.URL.Query().Get("testNumber")
	if testNumber == "" {
		httperrors.RespondBadRequest(w, "Missing testNumber")
		return
	}
	numbers, err := h.svc.QuestionNumbers(r.Context(), testNumber)
	if err != nil {
		h.internalError(w, "getQuestionNumbers", err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, numbers)
}

func (h *HTTPHandler) getQuestionDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.QuestionDetails(r.Context(), keyFromQuery(r))
	switch {
	case errors.Is(err, ErrMissingKey):
		httperrors.RespondBadRequest(w, "Missing testNumber or questionNumber")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Question not found")
	case err != nil:
		h.internalError(w, "getQuestionDetails", err)
	default:
		httperrors.RespondJSON(w, http.StatusOK, details)
	}
}

func (h *HTTPHandler) getCorrectAnswer(w http.ResponseWriter, r *http.Request) {
	answer, err := h.svc.CorrectAnswer(r.Context(), keyFromQuery(r))
	switch {
	case errors.Is(err, ErrMissingKey):
		httperrors.RespondBadRequest(w, "Test number and question number are required")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Question not found")
	case err != nil:
		h.logger.Error().Err(err).Msg("getCorrectAnswer failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, "Failed to fetch correct answer", err.Error())
	default:
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"correctAnswer": answer})
	}
}

func (h *HTTPHandler) getExplanation(w http.ResponseWriter, r *http.Request) {
	explanation, err := h.svc.Explanation(r.Context(), keyFromQuery(r))
	switch {
	case errors.Is(err, ErrMissingKey):
		httperrors.RespondBadRequest(w, "Test number and question number are required")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Question not found")
	case errors.Is(err, ErrNoExplanation):
		httperrors.RespondNotFound(w, "No explanation found")
	case err != nil:
		h.logger.Error().Err(err).Msg("getExplanation failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, "Failed to fetch explanation", err.Error())
	default:
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
	}
}

func (h *HTTPHandler) getCloneQuestions(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.CloneQuestions(r.Context(), keyFromQuery(r))
	switch {
	case errors.Is(err, ErrMissingKey):
		httperrors.RespondBadRequest(w, "Missing testNumber or questionNumber")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, "Original question not found")
	case err != nil:
		h.internalError(w, "getCloneQuestions", err)
	default:
		httperrors.RespondJSON(w, http.StatusOK, views)
	}
}

func (h *HTTPHandler) getSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.svc.Skills(r.Context())
	switch {
	case errors.Is(err, ErrNoSkills):
		httperrors.RespondErrorWithDetails(w, http.StatusNotFound, "No skills found", "No skills found in the Questions table")
	case err != nil:
		h.logger.Error().Err(err).Msg("getSkills failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, "Failed to fetch skills", err.Error())
	default:
		httperrors.RespondJSON(w, http.StatusOK, skills)
	}
}

func (h *HTTPHandler) getWorksheetQuestions(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.svc.WorksheetQuestions(r.Context(), r.URL.Query().Get("skillId"))
	switch {
	case errors.Is(err, ErrMissingSkill):
		httperrors.RespondBadRequest(w, "Skill ID is required")
	case err != nil:
		h.logger.Error().Err(err).Msg("getWorksheetQuestions failed")
		httperrors.RespondInternalError(w, "Failed to fetch questions: "+err.Error())
	default:
		httperrors.RespondJSON(w, http.StatusOK, sheet)
	}
}

type worksheetRef struct {
	TestNum     airtable.FlexString `json:"testNum"`
	QuestionNum airtable.FlexString `json:"questionNum"`
}

func (h *HTTPHandler) getWorksheetClones(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("testNumbersJson")
	if raw == "" {
		httperrors.RespondBadRequest(w, "Test numbers are required")
		return
	}
	var refs []worksheetRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, "Invalid test numbers", err.Error())
		return
	}
	keys := make([]Key, 0, len(refs))
	for _, ref := range refs {
		k := Key{TestNumber: ref.TestNum.String(), QuestionNumber: ref.QuestionNum.String()}
		if k.Valid() {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		httperrors.RespondBadRequest(w, "Test numbers are required")
		return
	}

	items, err := h.svc.WorksheetClones(r.Context(), keys)
	if err != nil {
		h.internalError(w, "getWorksheetClones", err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"questions": items})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, action string, err error) {
	h.logger.Error().Err(err).Str("action", action).Msg("action failed")
	httperrors.RespondInternalError(w, err.Error())
}
