package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/civicconnect/portal/internal/errors"
)

const maxJSONBody = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	// Field names the offending input field, when known.
	Field string
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error(), Field: p.Field})
}

// writeServiceError maps an application error onto an HTTP status. Errors without
// a known code are reported as fallback with status 500.
func writeServiceError(w http.ResponseWriter, fallback string, err error) {
	p := ErrorParams{Code: http.StatusInternalServerError, ErrCode: fallback, Err: err}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		p.Code, p.ErrCode, p.Field = http.StatusBadRequest, "validation_failed", apperrors.GetField(err)
	case apperrors.ErrCodeNotFound:
		p.Code, p.ErrCode = http.StatusNotFound, "not_found"
	case apperrors.ErrCodeConflict:
		p.Code, p.ErrCode = http.StatusConflict, "conflict"
	case apperrors.ErrCodeSessionUnavailable:
		p.Code, p.ErrCode = http.StatusUnauthorized, "authentication_required"
	case apperrors.ErrCodeInsufficientRole:
		p.Code, p.ErrCode = http.StatusForbidden, "insufficient_permissions"
	case apperrors.ErrCodeTimeout:
		p.Code, p.ErrCode = http.StatusGatewayTimeout, "timeout"
	case apperrors.ErrCodeInternal:
		p.Err = errors.New("internal error")
	default:
		if fallback == "" {
			p.ErrCode = "internal_error"
		}
	}
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error(), Field: p.Field})
}
