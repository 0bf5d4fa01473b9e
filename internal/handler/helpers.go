package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const maxBodyBytes = 10 << 20 // backups with inline attachments

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type confirmationResponse struct {
	Error  string `json:"error"`
	Impact any    `json:"impact"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into out, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeMutation answers a session mutation. A failed write after the change
// was applied in memory is still a success for the caller, carrying the
// warning the SPA shows as a toast.
func writeMutation(w http.ResponseWriter, status int, data any, err error, logger *zap.Logger) {
	var persistence *domain.ErrPersistence
	if errors.As(err, &persistence) {
		logger.Warn("mutation kept in memory, storage write failed",
			zap.String("collection", persistence.Collection),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, domain.MutationResponse{Data: data, Warning: persistence.Error()})
		return
	}
	if err != nil {
		handleServiceError(w, err, logger)
		return
	}
	writeJSON(w, status, domain.MutationResponse{Data: data})
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var validation *domain.ErrValidation
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var authErr *domain.ErrAuth
	var persistence *domain.ErrPersistence
	var confirm *domain.ErrConfirmationRequired
	var rateLimited *domain.ErrRateLimited
	var importInvalid *domain.ErrImportInvalid

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("field", validation.Field), zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &importInvalid):
		logger.Debug("import rejected", zap.Strings("missing", importInvalid.Missing))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &confirm):
		writeJSON(w, http.StatusConflict, confirmationResponse{Error: err.Error(), Impact: confirm.Impact})
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &authErr):
		logger.Info("auth rejected", zap.String("message", authErr.Message), zap.Error(authErr.Err))
		writeError(w, http.StatusUnauthorized, authErr.Message)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &persistence):
		// only reached when no data accompanies the failure
		logger.Warn("storage write failed", zap.String("collection", persistence.Collection), zap.Error(err))
		writeJSON(w, http.StatusOK, domain.MutationResponse{Warning: persistence.Error()})
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service failed", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Serviço externo indisponível. Tente novamente.")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
