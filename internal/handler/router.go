package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const probeTimeout = 2 * time.Second

// Probe checks one dependency for /healthz. Mode is reported as is
// (e.g. "remote" or "local").
type Probe struct {
	Name  string
	Mode  string
	Check func(ctx context.Context) error
}

// RouterDeps groups everything NewRouter wires.
type RouterDeps struct {
	Auth           *service.AuthService
	Sessions       *service.SessionManager
	Assistant      *service.AssistantService
	Probes         []Probe
	AllowedOrigins []string
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the studio dashboard SPA.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Retry-After", "X-Processing-Time-Ms"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Probes, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/app", appMetricsHandler(deps.Metrics))

		// =============================================
		// Autenticação (pública)
		// =============================================
		r.Post("/auth/login", authLoginHandler(deps.Auth, logger))
		r.Post("/auth/register", authRegisterHandler(deps.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(deps.Auth, deps.Sessions, logger))

			r.Post("/auth/logout", authLogoutHandler(deps.Auth, logger))
			r.Put("/auth/password", authChangePasswordHandler(deps.Auth, logger))
			r.Get("/session", sessionStateHandler(deps.Auth, logger))
			r.Get("/users", listUsersHandler(deps.Auth, logger))

			// =============================================
			// Jobs
			// =============================================
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", listJobsHandler(logger))
				r.Post("/", createJobHandler(logger))
				r.Put("/{id}", updateJobHandler(logger))
				r.Delete("/{id}", deleteJobHandler(logger))
				r.Post("/{id}/restore", restoreJobHandler(logger))
				r.Delete("/{id}/permanent", permanentDeleteJobHandler(logger))
				r.Post("/{id}/payments", addPaymentHandler(logger))
				r.Delete("/{id}/payments/{paymentId}", removePaymentHandler(logger))
			})

			// =============================================
			// Clientes
			// =============================================
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", listClientsHandler(logger))
				r.Post("/", createClientHandler(logger))
				r.Put("/{id}", updateClientHandler(logger))
				r.Get("/{id}/deletion-impact", clientDeletionImpactHandler(logger))
				r.Delete("/{id}", deleteClientHandler(logger))
			})

			// =============================================
			// Contratos
			// =============================================
			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", listContractsHandler(logger))
				r.Post("/", createContractHandler(logger))
				r.Put("/{id}", updateContractHandler(logger))
				r.Delete("/{id}", deleteContractHandler(logger))
			})

			// =============================================
			// Rascunhos & Configurações
			// =============================================
			r.Route("/drafts", func(r chi.Router) {
				r.Get("/", listDraftsHandler(logger))
				r.Post("/", createDraftHandler(logger))
				r.Put("/{id}", updateDraftHandler(logger))
				r.Delete("/{id}", deleteDraftHandler(logger))
			})
			r.Get("/settings", getSettingsHandler(logger))
			r.Put("/settings", updateSettingsHandler(logger))

			// =============================================
			// Notificações
			// =============================================
			r.Get("/notifications", listNotificationsHandler(logger))
			r.Post("/notifications/read", markNotificationsReadHandler(logger))
			r.Post("/notifications/read-all", markAllNotificationsReadHandler(logger))

			// =============================================
			// Backup
			// =============================================
			r.Get("/export", exportHandler(logger))
			r.Post("/import", importHandler(logger))

			// =============================================
			// Assistente IA
			// =============================================
			r.Post("/ai/contract", draftContractHandler(deps.Assistant, logger))
			r.Post("/ai/proposal", draftProposalHandler(deps.Assistant, logger))
			r.Post("/ai/chat", chatHandler(deps.Assistant, logger))
		})
	})

	return r
}

// ============================================================
// Métricas & Health
// ============================================================

func healthzHandler(probes []Probe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []domain.ServiceHealth{{Name: "bfa-api", Status: "healthy"}}

		for _, p := range probes {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			err := p.Check(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{Name: p.Name, Status: status, Mode: p.Mode})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func appMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAppSnapshot())
	}
}
