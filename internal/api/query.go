package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/answer"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/nl2sql"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/sqlguard"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/warehouse"
)

const (
	messageQueryRequired = "Query must be a non-empty string"
	messageQueryTooLong  = "Query too long (max 500 chars)"
)

var validate = validator.New()

type questionRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

type translateResponse struct {
	RawOutput         string             `json:"raw_output"`
	Statement         string             `json:"statement"`
	RepairedStatement string             `json:"repaired_statement"`
	Rewrites          []sqlguard.Rewrite `json:"rewrites"`
	Safe              bool               `json:"safe"`
	Model             string             `json:"model,omitempty"`
}

// apiError is a failure already mapped to an HTTP status and error code.
type apiError struct {
	status    int
	code      string
	message   string
	retryable bool
	details   string
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}
	question, failure := decodeQuestion(r)
	if failure != nil {
		writeAPIError(w, r, failure)
		return
	}
	response, err := deps.Answerer.Answer(r.Context(), question)
	if err != nil {
		writeAPIError(w, r, classifyError(err))
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleLegacyQuery serves the browser frontend, which expects {type, data} and {error} bodies.
func handleLegacyQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "query pipeline is not configured"})
		return
	}
	question, failure := decodeQuestion(r)
	if failure != nil {
		writeJSON(w, failure.status, map[string]any{"error": failure.message})
		return
	}
	response, err := deps.Answerer.Answer(r.Context(), question)
	if err != nil {
		failure := classifyError(err)
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "query processing failed",
				"trace_id", observability.TraceIDFromContext(r.Context()),
				"error_code", failure.code,
				"error", err.Error(),
			)
		}
		writeJSON(w, failure.status, map[string]any{"error": failure.message, "trace_id": observability.TraceIDFromContext(r.Context())})
		return
	}
	writeJSON(w, http.StatusOK, response.Legacy())
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	question, failure := decodeQuestion(r)
	if failure != nil {
		writeAPIError(w, r, failure)
		return
	}
	translation, err := deps.Answerer.Translate(r.Context(), question)
	if err != nil {
		writeAPIError(w, r, classifyError(err))
		return
	}
	rewrites := translation.Rewrites
	if rewrites == nil {
		rewrites = []sqlguard.Rewrite{}
	}
	writeJSON(w, http.StatusOK, translateResponse{
		RawOutput:         translation.RawOutput,
		Statement:         translation.Statement,
		RepairedStatement: translation.RepairedStatement,
		Rewrites:          rewrites,
		Safe:              translation.Safe,
		Model:             translation.Model,
	})
}

func decodeQuestion(r *http.Request) (string, *apiError) {
	var request questionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return "", &apiError{status: http.StatusBadRequest, code: "INVALID_JSON", message: messageQueryRequired, details: err.Error()}
	}
	if err := validate.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 && fieldErrors[0].Tag() == "max" {
			return "", &apiError{status: http.StatusBadRequest, code: "QUERY_TOO_LONG", message: messageQueryTooLong}
		}
		return "", &apiError{status: http.StatusBadRequest, code: "QUERY_REQUIRED", message: messageQueryRequired}
	}
	return request.Query, nil
}

func classifyError(err error) *apiError {
	switch {
	case errors.Is(err, answer.ErrInvalidInput):
		return &apiError{status: http.StatusBadRequest, code: "QUERY_REQUIRED", message: messageQueryRequired, details: err.Error()}
	case errors.Is(err, warehouse.ErrSourceUnavailable):
		return &apiError{status: http.StatusServiceUnavailable, code: "SOURCE_UNAVAILABLE", message: "source data files are unavailable", retryable: true, details: err.Error()}
	case errors.Is(err, warehouse.ErrNotInitialized):
		return &apiError{status: http.StatusServiceUnavailable, code: "SCHEMA_NOT_READY", message: "warehouse is not loaded yet", retryable: true, details: err.Error()}
	case errors.Is(err, nl2sql.ErrBackendUnreachable):
		return &apiError{status: http.StatusBadGateway, code: "MODEL_UNREACHABLE", message: "model backend is unreachable", retryable: true, details: err.Error()}
	case errors.Is(err, nl2sql.ErrUnexpectedResponse):
		return &apiError{status: http.StatusBadGateway, code: "MODEL_BAD_RESPONSE", message: "model backend returned an unexpected response", retryable: true, details: err.Error()}
	default:
		return &apiError{status: http.StatusInternalServerError, code: "INTERNAL", message: "Internal server error", details: err.Error()}
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, failure *apiError) {
	var extra map[string]any
	if failure.details != "" {
		extra = map[string]any{"details": failure.details}
	}
	writeError(r.Context(), w, failure.status, failure.code, failure.message, failure.retryable, extra)
}
