package handler

import (
	"net/http"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Draft notes: /v1/drafts
// ============================================================

func listDraftsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()).DraftNotes())
	}
}

func createDraftHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/drafts")
		defer span.End()

		var d domain.DraftNote
		if !decodeJSON(w, r, &d) {
			return
		}
		draft, err := SessionFromContext(ctx).AddDraftNote(ctx, d)
		writeMutation(w, http.StatusCreated, draft, err, logger)
	}
}

func updateDraftHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/drafts/{id}")
		defer span.End()

		var d domain.DraftNote
		if !decodeJSON(w, r, &d) {
			return
		}
		draft, err := SessionFromContext(ctx).UpdateDraftNote(ctx, chi.URLParam(r, "id"), d)
		writeMutation(w, http.StatusOK, draft, err, logger)
	}
}

func deleteDraftHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/drafts/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		err := SessionFromContext(ctx).DeleteDraftNote(ctx, id)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Rascunho excluído.", ID: id}, err, logger)
	}
}

// ============================================================
// Settings: /v1/settings
// ============================================================

func getSettingsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()).Settings())
	}
}

func updateSettingsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings")
		defer span.End()

		var st domain.AppSettings
		if !decodeJSON(w, r, &st) {
			return
		}
		settings, err := SessionFromContext(ctx).UpdateSettings(ctx, st)
		writeMutation(w, http.StatusOK, settings, err, logger)
	}
}
