package handlers

import (
	"errors"
	"net/http"

	"taskwise/internal/logger"
	"taskwise/internal/middleware"
	"taskwise/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, r *http.Request, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}
	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Business error",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode))

	details := businessErr.Details
	if details == nil {
		details = map[string]any{}
	}
	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", details),
	)
	return true
}

// handleError writes err as a business error or, failing that, as an
// internal error.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, r, err) {
		return
	}
	logger.Error("HTTP: Service error", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, "internal server error")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodePermissionDenied, service.CodeTransitionDenied:
		return http.StatusForbidden
	case service.CodeInvalidState, service.CodeConflict:
		return http.StatusConflict
	case service.CodeOperationFailed:
		return http.StatusBadGateway
	case service.CodeNoChange:
		return http.StatusOK
	default:
		return http.StatusBadRequest
	}
}

func isNoChange(err error) bool {
	var businessErr *service.BusinessError
	return errors.As(err, &businessErr) && businessErr.Code == service.CodeNoChange
}
