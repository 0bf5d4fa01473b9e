package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Mode   string `json:"mode,omitempty"`
}

// AppMetrics is returned by GET /v1/metrics/app.
type AppMetrics struct {
	ActiveSessions      int64   `json:"activeSessions"`
	StorageReads        int64   `json:"storageReads"`
	StorageWrites       int64   `json:"storageWrites"`
	StorageErrors       int64   `json:"storageErrors"`
	PersistenceFailures int64   `json:"persistenceFailures"`
	AIPromptTokens      int64   `json:"aiPromptTokens"`
	AICompletionTokens  int64   `json:"aiCompletionTokens"`
	CacheHitRate        float64 `json:"cacheHitRate"`
}

// MutationResponse wraps the result of a mutation. Warning carries the toast
// shown when the write to storage failed but the change was kept in memory.
type MutationResponse struct {
	Data    any    `json:"data,omitempty"`
	Warning string `json:"aviso,omitempty"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
