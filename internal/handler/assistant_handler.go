package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Assistente IA: /v1/ai
// ============================================================

func draftContractHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ai/contract")
		defer span.End()

		var req domain.DraftRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		start := time.Now()
		resp, err := svc.DraftContract(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("X-Processing-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		writeJSON(w, http.StatusOK, resp)
	}
}

func draftProposalHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ai/proposal")
		defer span.End()

		var req domain.DraftRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		start := time.Now()
		resp, err := svc.DraftProposal(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("X-Processing-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		writeJSON(w, http.StatusOK, resp)
	}
}

func chatHandler(svc *service.AssistantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ai/chat")
		defer span.End()

		var req domain.ChatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Message == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Digite uma mensagem.", Field: "message"})
			return
		}

		start := time.Now()
		resp, err := svc.Chat(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("tools.executed", len(resp.ToolsExecuted)))

		w.Header().Set("X-Processing-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		writeJSON(w, http.StatusOK, resp)
	}
}
