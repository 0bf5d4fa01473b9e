package domain

import "encoding/json"

// ExportVersion tags backup files produced by this service.
const ExportVersion = "2.0"

// ExportData holds every collection of a backup.
type ExportData struct {
	Jobs       []Job        `json:"jobs"`
	Clients    []Client     `json:"clients"`
	Contracts  []Contract   `json:"contracts"`
	DraftNotes []DraftNote  `json:"draftNotes"`
	Settings   *AppSettings `json:"settings"`
}

// ExportDocument is the downloadable backup file.
type ExportDocument struct {
	Version    string     `json:"version"`
	ExportedAt string     `json:"exportedAt"`
	Data       ExportData `json:"data"`
}

// ImportDocument is decoded loosely first so missing keys can be reported
// before any collection is touched.
type ImportDocument struct {
	Version string                     `json:"version"`
	Data    map[string]json.RawMessage `json:"data"`
}

// ClientDeletionImpact describes what deleting a client will also remove.
type ClientDeletionImpact struct {
	ClientID         string `json:"clientId"`
	ClientName       string `json:"clientName"`
	ContractsDeleted int    `json:"contractsDeleted"`
	JobsUnlinked     int    `json:"jobsUnlinked"`
	Message          string `json:"message"`
}
