// Package domain defines the core business entities of the studio manager.
// The JSON shapes match the documents the SPA has always stored, so blobs
// written by older clients load unchanged.
package domain

// ============================================================
// Collections / well-known owners
// ============================================================

// Collection keys. Each (owner, collection) pair is one JSON document.
const (
	CollectionJobs       = "jobs"
	CollectionClients    = "clients"
	CollectionContracts  = "contracts"
	CollectionDraftNotes = "draftNotes"
	CollectionSettings   = "settings"
	CollectionUsers      = "users"
	CollectionLicenses   = "licenses"
	CollectionBugReports = "bug_reports"
	CollectionTemplates  = "templates"
	CollectionPresets    = "presets"
	CollectionProposals  = "proposals"
)

// SystemOwnerID owns the global documents (user directory, licenses).
const SystemOwnerID = "system"

// UnknownOwnerUsername labels jobs whose owner is missing from the directory.
const UnknownOwnerUsername = "Desconhecido"

// ============================================================
// User
// ============================================================

// User is the internal shape of an authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ============================================================
// Client
// ============================================================

// Client is a customer of the studio. Owned implicitly by the account whose
// document it lives in.
type Client struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Company      string `json:"company,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	CPF          string `json:"cpf,omitempty"`
	Instagram    string `json:"instagram,omitempty"`
	Birthday     string `json:"birthday,omitempty"` // YYYY-MM-DD
	Observations string `json:"observations,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// ============================================================
// Job
// ============================================================

// JobStatus is the kanban column of a job.
type JobStatus string

const (
	StatusBriefing   JobStatus = "Briefing"
	StatusProducao   JobStatus = "Produção"
	StatusRevisao    JobStatus = "Revisão"
	StatusFinalizado JobStatus = "Finalizado"
	StatusPago       JobStatus = "Pago"
	StatusOutros     JobStatus = "Outros"
)

// JobStatuses lists every status in kanban order.
var JobStatuses = []JobStatus{
	StatusBriefing, StatusProducao, StatusRevisao, StatusFinalizado, StatusPago, StatusOutros,
}

// Valid reports whether s is one of the fixed statuses.
func (s JobStatus) Valid() bool {
	for _, st := range JobStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Service types offered by the studio. Free text is accepted; ServiceOther
// pairs with Job.CustomServiceType.
const (
	ServiceVideo       = "Vídeo"
	ServicePhoto       = "Fotografia"
	ServiceDesign      = "Design"
	ServiceSocialMedia = "Social Media"
	ServiceEditing     = "Edição"
	ServiceOther       = "Outro"
)

// Payment is one installment received for a job.
type Payment struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Method string  `json:"method,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

// Task is a production checklist item.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	DueDate   string `json:"dueDate,omitempty"`
}

// FinancialTask is a money-related checklist item (invoice, supplier payment).
type FinancialTask struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount,omitempty"`
	DueDate   string  `json:"dueDate,omitempty"`
	Completed bool    `json:"completed"`
}

// ObservationEntry is a legacy timestamped note.
type ObservationEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Job is a production job for a client.
type Job struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	ClientID            string             `json:"clientId"`
	ServiceType         string             `json:"serviceType"`
	CustomServiceType   string             `json:"customServiceType,omitempty"`
	Value               float64            `json:"value"`
	Cost                float64            `json:"cost,omitempty"`
	Deadline            string             `json:"deadline"`
	RecordingDate       string             `json:"recordingDate,omitempty"`
	Status              JobStatus          `json:"status"`
	CloudLinks          []string           `json:"cloudLinks"`
	CreatedAt           string             `json:"createdAt"`
	Notes               string             `json:"notes,omitempty"`
	IsDeleted           bool               `json:"isDeleted"`
	ObservationsLog     []ObservationEntry `json:"observationsLog"`
	Payments            []Payment          `json:"payments"`
	IsRecurring         bool               `json:"isRecurring"`
	CreateCalendarEvent bool               `json:"createCalendarEvent,omitempty"`
	Tasks               []Task             `json:"tasks"`
	FinancialTasks      []FinancialTask    `json:"financialTasks,omitempty"`
	LinkedContractID    string             `json:"linkedContractId,omitempty"`
	LinkedDraftIDs      []string           `json:"linkedDraftIds"`
	OwnerID             string             `json:"ownerId"`
	OwnerUsername       string             `json:"ownerUsername"`
	IsTeamJob           bool               `json:"isTeamJob,omitempty"`

	// LegacyCloudLink is read from old documents and folded into CloudLinks.
	LegacyCloudLink string `json:"cloudLink,omitempty"`
}

// PaidAmount is the sum of all payments.
func (j *Job) PaidAmount() float64 {
	var total float64
	for _, p := range j.Payments {
		total += p.Amount
	}
	return total
}

// RemainingAmount is what the client still owes, never negative.
func (j *Job) RemainingAmount() float64 {
	if r := j.Value - j.PaidAmount(); r > 0 {
		return r
	}
	return 0
}

// Profit is value minus cost.
func (j *Job) Profit() float64 {
	return j.Value - j.Cost
}

// JobInput carries the caller-controlled fields of a job. Identity,
// timestamps, ownership and the history lists are always set by the session.
type JobInput struct {
	Name                string          `json:"name"`
	ClientID            string          `json:"clientId"`
	ServiceType         string          `json:"serviceType"`
	CustomServiceType   string          `json:"customServiceType,omitempty"`
	Value               float64         `json:"value"`
	Cost                float64         `json:"cost,omitempty"`
	Deadline            string          `json:"deadline"`
	RecordingDate       string          `json:"recordingDate,omitempty"`
	Status              JobStatus       `json:"status"`
	CloudLinks          []string        `json:"cloudLinks"`
	Notes               string          `json:"notes,omitempty"`
	IsRecurring         bool            `json:"isRecurring"`
	CreateCalendarEvent bool            `json:"createCalendarEvent,omitempty"`
	FinancialTasks      []FinancialTask `json:"financialTasks,omitempty"`
	LinkedContractID    string          `json:"linkedContractId,omitempty"`
	IsTeamJob           bool            `json:"isTeamJob,omitempty"`

	// Tasks and LinkedDraftIDs are applied by updates only; a new job
	// always starts with empty lists.
	Tasks          []Task   `json:"tasks,omitempty"`
	LinkedDraftIDs []string `json:"linkedDraftIds,omitempty"`
}

// ============================================================
// Contract
// ============================================================

// Contract durations.
const (
	DurationPontual   = "Pontual"
	DurationSemestral = "Semestral"
	DurationAnual     = "Anual"
)

// Contract is a service contract with a client.
type Contract struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ClientID      string `json:"clientId"`
	Content       string `json:"content"`
	CreatedAt     string `json:"createdAt"`
	OwnerID       string `json:"ownerId"`
	OwnerUsername string `json:"ownerUsername"`
	IsSigned      bool   `json:"isSigned"`
	Duration      string `json:"duration,omitempty"`
}

// ============================================================
// Draft notes / scripts
// ============================================================

// Draft note types.
const (
	DraftText   = "TEXT"
	DraftScript = "SCRIPT"
)

// ScriptLine is one scene of a script. Duration is in seconds.
type ScriptLine struct {
	ID          string `json:"id"`
	Scene       string `json:"scene"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// Attachment is a file linked to a draft.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// DraftNote is a free text note or a scene-by-scene script.
type DraftNote struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	Content     string       `json:"content,omitempty"`
	ScriptLines []ScriptLine `json:"scriptLines"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// TotalDuration sums the script line durations in seconds.
func (d *DraftNote) TotalDuration() int {
	total := 0
	for _, l := range d.ScriptLines {
		total += l.Duration
	}
	return total
}

// ============================================================
// Settings
// ============================================================

// AppSettings is the per-account configuration, replaced wholesale on update.
type AppSettings struct {
	UserName          string            `json:"userName,omitempty"`
	Theme             string            `json:"theme"`
	AccentColor       string            `json:"accentColor"`
	PrivacyMode       bool              `json:"privacyMode"`
	TeamMembers       []string          `json:"teamMembers"`
	CustomLinkURL     string            `json:"customLinkUrl,omitempty"`
	CustomLinkLabel   string            `json:"customLinkLabel,omitempty"`
	KanbanColumnNames map[string]string `json:"kanbanColumnNames"`
}

// DefaultSettings returns the hard-coded defaults stored settings merge over.
func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:             "dark",
		AccentColor:       "#8b5cf6",
		PrivacyMode:       false,
		TeamMembers:       []string{},
		KanbanColumnNames: map[string]string{},
	}
}

// ============================================================
// Licenses
// ============================================================

// License statuses.
const (
	LicenseUsed    = "used"
	LicenseRevoked = "revoked"
)

// LicenseRecord tracks which username consumed a license key.
type LicenseRecord struct {
	Key      string `json:"key"`
	Username string `json:"username"`
	Status   string `json:"status"`
	UsedAt   string `json:"usedAt"`
}
