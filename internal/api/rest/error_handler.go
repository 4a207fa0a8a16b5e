package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
)

const (
	messageInternalError = "Internal server error"
	messageInvalidInput  = "Invalid input data"

	retryAfterSeconds = "1"
)

// errorResponse is the body of every failed request. Details is only set
// for request bodies that could not be decoded.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONContentType(w, "application/json", status, v)
}

func writeJSONContentType(w http.ResponseWriter, contentType string, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorHandler maps errors to responses. Internal failures never leak their
// message to the client.
type errorHandler struct {
	logger *zap.Logger
}

func (h *errorHandler) handle(w http.ResponseWriter, r *http.Request, err error) {
	h.handleWithStatus(w, r, err, 0)
}

// handleWithStatus writes err using status when it is non-zero, otherwise the
// status carried by the error. Errors outside the AppError taxonomy are
// reported as internal.
func (h *errorHandler) handleWithStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	logger := telemetry.WithTrace(r.Context(), h.logger).With(
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
	)

	var appErr *domainErrors.AppError
	if !errors.As(err, &appErr) {
		appErr = domainErrors.NewInternalError(messageInternalError).WithCause(err)
	}

	if appErr.Type == domainErrors.ErrorTypeInternal {
		logger.Error("request failed", zap.Error(err), zap.String("code", appErr.Code))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: messageInternalError})
		return
	}

	if status == 0 {
		status = domainErrors.GetStatusCode(appErr)
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if domainErrors.IsRetryable(appErr) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.String("code", appErr.Code))
	} else {
		logger.Warn("request rejected", zap.Error(err), zap.String("code", appErr.Code))
	}

	writeJSON(w, status, errorResponse{Error: appErr.Message})
}
