package handler

import (
	"io"
	"net/http"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Notifications: /v1/notifications
// ============================================================

func listNotificationsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notifications")
		defer span.End()

		writeJSON(w, http.StatusOK, SessionFromContext(ctx).Notifications(ctx))
	}
}

func markNotificationsReadHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/read")
		defer span.End()

		var req domain.MarkReadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := SessionFromContext(ctx).MarkNotificationsRead(ctx, req.IDs); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllNotificationsReadHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/read-all")
		defer span.End()

		if err := SessionFromContext(ctx).MarkAllNotificationsRead(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Backup: /v1/export, /v1/import
// ============================================================

func exportHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export")
		defer span.End()

		doc, err := SessionFromContext(ctx).Export(ctx)
		if err != nil {
			// the file is still produced; storage just lags behind
			logger.Warn("export: storage write failed", zap.Error(err))
		}
		w.Header().Set("Content-Disposition", `attachment; filename="studio-backup.json"`)
		writeJSON(w, http.StatusOK, doc)
	}
}

func importHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import")
		defer span.End()

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err = SessionFromContext(ctx).Import(ctx, raw)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Backup importado com sucesso."}, err, logger)
	}
}
