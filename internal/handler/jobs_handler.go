package handler

import (
	"net/http"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Jobs: /v1/jobs
// ============================================================

func listJobsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()).Jobs())
	}
}

func createJobHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/jobs")
		defer span.End()

		var in domain.JobInput
		if !decodeJSON(w, r, &in) {
			return
		}
		job, err := SessionFromContext(ctx).AddJob(ctx, in)
		writeMutation(w, http.StatusCreated, job, err, logger)
	}
}

func updateJobHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/jobs/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("job.id", id))

		var in domain.JobInput
		if !decodeJSON(w, r, &in) {
			return
		}
		job, err := SessionFromContext(ctx).UpdateJob(ctx, id, in)
		writeMutation(w, http.StatusOK, job, err, logger)
	}
}

func deleteJobHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/jobs/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		err := SessionFromContext(ctx).DeleteJob(ctx, id)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Job movido para a lixeira.", ID: id}, err, logger)
	}
}

func restoreJobHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/jobs/{id}/restore")
		defer span.End()

		id := chi.URLParam(r, "id")
		err := SessionFromContext(ctx).RestoreJob(ctx, id)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Job restaurado.", ID: id}, err, logger)
	}
}

func permanentDeleteJobHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/jobs/{id}/permanent")
		defer span.End()

		id := chi.URLParam(r, "id")
		err := SessionFromContext(ctx).PermanentlyDeleteJob(ctx, id)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Job excluído permanentemente.", ID: id}, err, logger)
	}
}

// ============================================================
// Payments: /v1/jobs/{id}/payments
// ============================================================

func addPaymentHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/jobs/{id}/payments")
		defer span.End()

		var p domain.Payment
		if !decodeJSON(w, r, &p) {
			return
		}
		job, err := SessionFromContext(ctx).AddPayment(ctx, chi.URLParam(r, "id"), p)
		writeMutation(w, http.StatusCreated, job, err, logger)
	}
}

func removePaymentHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/jobs/{id}/payments/{paymentId}")
		defer span.End()

		job, err := SessionFromContext(ctx).RemovePayment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "paymentId"))
		writeMutation(w, http.StatusOK, job, err, logger)
	}
}
