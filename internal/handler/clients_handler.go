package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Clients: /v1/clients
// ============================================================

func listClientsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()).Clients())
	}
}

func createClientHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		var c domain.Client
		if !decodeJSON(w, r, &c) {
			return
		}
		client, err := SessionFromContext(ctx).AddClient(ctx, c)
		writeMutation(w, http.StatusCreated, client, err, logger)
	}
}

func updateClientHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clients/{id}")
		defer span.End()

		var c domain.Client
		if !decodeJSON(w, r, &c) {
			return
		}
		client, err := SessionFromContext(ctx).UpdateClient(ctx, chi.URLParam(r, "id"), c)
		writeMutation(w, http.StatusOK, client, err, logger)
	}
}

func clientDeletionImpactHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		impact, err := SessionFromContext(r.Context()).ClientDeletionImpact(chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, impact)
	}
}

// deleteClientHandler needs ?confirm=true; without it the impact comes back
// as 409 so the SPA can show the confirmation dialog.
func deleteClientHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clients/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		span.SetAttributes(attribute.String("client.id", id), attribute.Bool("confirmed", confirmed))

		impact, err := SessionFromContext(ctx).DeleteClient(ctx, id, confirmed)
		writeMutation(w, http.StatusOK, impact, err, logger)
	}
}

// ============================================================
// Contracts: /v1/contracts
// ============================================================

func listContractsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()).Contracts())
	}
}

func createContractHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contracts")
		defer span.End()

		var c domain.Contract
		if !decodeJSON(w, r, &c) {
			return
		}
		contract, err := SessionFromContext(ctx).AddContract(ctx, c)
		writeMutation(w, http.StatusCreated, contract, err, logger)
	}
}

func updateContractHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/contracts/{id}")
		defer span.End()

		var c domain.Contract
		if !decodeJSON(w, r, &c) {
			return
		}
		contract, err := SessionFromContext(ctx).UpdateContract(ctx, chi.URLParam(r, "id"), c)
		writeMutation(w, http.StatusOK, contract, err, logger)
	}
}

func deleteContractHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/contracts/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		err := SessionFromContext(ctx).DeleteContract(ctx, id)
		writeMutation(w, http.StatusOK, domain.SuccessResponse{Message: "Contrato excluído.", ID: id}, err, logger)
	}
}
