package domain

// ============================================================
// Notifications (derived, never stored)
// ============================================================

// Notification types.
const (
	NotificationOverdue     = "overdue"
	NotificationDeadline    = "deadline"
	NotificationBirthday    = "birthday"
	NotificationClient1Year = "client-1yr"
	NotificationClient60d   = "client-60d"
)

// Notification is recomputed from jobs and clients on every read. Only the
// ids of read notifications are persisted.
type Notification struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	LinkTo   string `json:"linkTo"`
	IsRead   bool   `json:"isRead"`
	EntityID string `json:"entityId"`
}

// MarkReadRequest is the body for POST /v1/notifications/read.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}
