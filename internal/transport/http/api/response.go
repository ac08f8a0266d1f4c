package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"groundops/internal/platform/apperror"
	"groundops/internal/platform/logging"
	"groundops/internal/platform/requestctx"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailErr writes err as an error envelope. Errors outside apperror become an
// opaque 500 and are logged with the request logger.
func FailErr(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	appErr, ok := apperror.As(err)
	if !ok {
		logging.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
		Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
		return
	}

	status := StatusFor(appErr)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.String("kind", string(appErr.Kind)),
			zap.String("code", appErr.Code),
			zap.Error(appErr),
		)
	}

	var details any
	if len(appErr.Fields) > 0 {
		details = map[string]any{"fields": appErr.Fields}
	}
	FailWithDetails(w, status, appErr.Code, appErr.Message, details, requestID)
}

func StatusFor(err *apperror.Error) int {
	switch err.Kind {
	case apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindAuth:
		if err.Code == apperror.ReasonRoleMismatch {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindPersistence:
		return http.StatusServiceUnavailable
	case apperror.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
