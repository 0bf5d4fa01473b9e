package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
)

// ============================================================
// Chat tools
// ============================================================

type toolHandler func(ctx context.Context, s *Session, args map[string]any) (map[string]any, error)

var toolHandlers = map[string]toolHandler{
	"create_client":     toolCreateClient,
	"create_job":        toolCreateJob,
	"create_contract":   toolCreateContract,
	"update_job_status": toolUpdateJobStatus,
	"create_script":     toolCreateScript,
}

func statusNames() []string {
	out := make([]string, len(domain.JobStatuses))
	for i, st := range domain.JobStatuses {
		out[i] = string(st)
	}
	return out
}

var chatTools = []domain.ToolDeclaration{
	{
		Name:        "create_client",
		Description: "Cadastra um novo cliente.",
		Parameters: map[string]domain.ToolParameter{
			"name":      {Type: "string", Description: "Nome do cliente"},
			"email":     {Type: "string", Description: "E-mail"},
			"phone":     {Type: "string", Description: "Telefone"},
			"company":   {Type: "string", Description: "Empresa"},
			"instagram": {Type: "string", Description: "Perfil do Instagram"},
		},
		Required: []string{"name"},
	},
	{
		Name:        "create_job",
		Description: "Cria um job para um cliente existente.",
		Parameters: map[string]domain.ToolParameter{
			"name":        {Type: "string", Description: "Nome do job"},
			"client":      {Type: "string", Description: "Nome ou id do cliente"},
			"serviceType": {Type: "string", Description: "Tipo de serviço (Vídeo, Fotografia, Design, Social Media, Edição, Outro)"},
			"value":       {Type: "number", Description: "Valor em reais"},
			"deadline":    {Type: "string", Description: "Prazo de entrega AAAA-MM-DD"},
			"status":      {Type: "string", Description: "Status inicial", Enum: statusNames()},
		},
		Required: []string{"name", "client", "serviceType", "deadline"},
	},
	{
		Name:        "create_contract",
		Description: "Cria um contrato para um cliente existente.",
		Parameters: map[string]domain.ToolParameter{
			"title":    {Type: "string", Description: "Título do contrato"},
			"client":   {Type: "string", Description: "Nome ou id do cliente"},
			"content":  {Type: "string", Description: "Texto do contrato"},
			"duration": {Type: "string", Description: "Duração", Enum: []string{domain.DurationPontual, domain.DurationSemestral, domain.DurationAnual}},
		},
		Required: []string{"title", "client"},
	},
	{
		Name:        "update_job_status",
		Description: "Move um job para outra coluna do kanban.",
		Parameters: map[string]domain.ToolParameter{
			"job":    {Type: "string", Description: "Nome ou id do job"},
			"status": {Type: "string", Description: "Novo status", Enum: statusNames()},
		},
		Required: []string{"job", "status"},
	},
	{
		Name:        "create_script",
		Description: "Cria um roteiro. Cada cena em uma linha no formato 'cena | descrição | segundos'.",
		Parameters: map[string]domain.ToolParameter{
			"title":  {Type: "string", Description: "Título do roteiro"},
			"scenes": {Type: "string", Description: "Cenas, uma por linha"},
		},
		Required: []string{"title"},
	},
}

func toolCreateClient(ctx context.Context, s *Session, args map[string]any) (map[string]any, error) {
	c, err := s.AddClient(ctx, domain.Client{
		Name:      argString(args, "name"),
		Email:     argString(args, "email"),
		Phone:     argString(args, "phone"),
		Company:   argString(args, "company"),
		Instagram: argString(args, "instagram"),
	})
	if c == nil {
		return nil, err
	}
	return map[string]any{"id": c.ID, "name": c.Name}, err
}

func toolCreateJob(ctx context.Context, s *Session, args map[string]any) (map[string]any, error) {
	c, ok := lookupClient(s.Clients(), argString(args, "client"))
	if !ok {
		return nil, fmt.Errorf("cliente não encontrado: %s", argString(args, "client"))
	}
	j, err := s.AddJob(ctx, domain.JobInput{
		Name:        argString(args, "name"),
		ClientID:    c.ID,
		ServiceType: argString(args, "serviceType"),
		Value:       argFloat(args, "value"),
		Deadline:    argString(args, "deadline"),
		Status:      domain.JobStatus(argString(args, "status")),
		CloudLinks:  []string{},
	})
	if j == nil {
		return nil, err
	}
	return map[string]any{"id": j.ID, "name": j.Name, "status": string(j.Status)}, err
}

func toolCreateContract(ctx context.Context, s *Session, args map[string]any) (map[string]any, error) {
	c, ok := lookupClient(s.Clients(), argString(args, "client"))
	if !ok {
		return nil, fmt.Errorf("cliente não encontrado: %s", argString(args, "client"))
	}
	ct, err := s.AddContract(ctx, domain.Contract{
		Title:    argString(args, "title"),
		ClientID: c.ID,
		Content:  argString(args, "content"),
		Duration: argString(args, "duration"),
	})
	if ct == nil {
		return nil, err
	}
	return map[string]any{"id": ct.ID, "title": ct.Title}, err
}

func toolUpdateJobStatus(ctx context.Context, s *Session, args map[string]any) (map[string]any, error) {
	ref := argString(args, "job")
	j, ok := lookupJob(s.Jobs(), s.User().ID, ref)
	if !ok {
		return nil, fmt.Errorf("job não encontrado: %s", ref)
	}
	in := jobInputOf(j)
	in.Status = domain.JobStatus(argString(args, "status"))
	if !in.Status.Valid() {
		return nil, fmt.Errorf("status inválido: %s", in.Status)
	}
	updated, err := s.UpdateJob(ctx, j.ID, in)
	if updated == nil {
		return nil, err
	}
	return map[string]any{"id": updated.ID, "name": updated.Name, "status": string(updated.Status)}, err
}

func toolCreateScript(ctx context.Context, s *Session, args map[string]any) (map[string]any, error) {
	d, err := s.AddDraftNote(ctx, domain.DraftNote{
		Title:       argString(args, "title"),
		Type:        domain.DraftScript,
		ScriptLines: parseScenes(argString(args, "scenes")),
		Attachments: []domain.Attachment{},
	})
	if d == nil {
		return nil, err
	}
	return map[string]any{"id": d.ID, "title": d.Title, "scenes": len(d.ScriptLines)}, err
}

// parseScenes reads one "scene | description | seconds" per line. Missing
// fields stay empty.
func parseScenes(raw string) []domain.ScriptLine {
	lines := []domain.ScriptLine{}
	for _, row := range strings.Split(raw, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		parts := strings.Split(row, "|")
		l := domain.ScriptLine{Scene: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			l.Description = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			var secs int
			if _, err := fmt.Sscanf(strings.TrimSpace(parts[2]), "%d", &secs); err == nil && secs > 0 {
				l.Duration = secs
			}
		}
		lines = append(lines, l)
	}
	return lines
}

// ============================================================
// Helpers
// ============================================================

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func argFloat(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.ReplaceAll(v, ",", "."), "%g", &f); err == nil {
			return f
		}
	}
	return 0
}

func findClient(clients []domain.Client, id string) (domain.Client, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Client{}, false
}

func findJob(jobs []domain.Job, id string) (domain.Job, bool) {
	for _, j := range jobs {
		if j.ID == id {
			return j, true
		}
	}
	return domain.Job{}, false
}

// lookupClient matches by id or case-insensitive name.
func lookupClient(clients []domain.Client, ref string) (domain.Client, bool) {
	if c, ok := findClient(clients, ref); ok {
		return c, true
	}
	for _, c := range clients {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return domain.Client{}, false
}

// lookupJob matches by id or name among the user's own active jobs.
func lookupJob(jobs []domain.Job, ownerID, ref string) (domain.Job, bool) {
	for _, j := range jobs {
		if j.ID == ref && j.OwnerID == ownerID {
			return j, true
		}
	}
	for _, j := range jobs {
		if !j.IsDeleted && j.OwnerID == ownerID && strings.EqualFold(j.Name, ref) {
			return j, true
		}
	}
	return domain.Job{}, false
}

// jobInputOf copies the editable fields of an existing job.
func jobInputOf(j domain.Job) domain.JobInput {
	return domain.JobInput{
		Name:                j.Name,
		ClientID:            j.ClientID,
		ServiceType:         j.ServiceType,
		CustomServiceType:   j.CustomServiceType,
		Value:               j.Value,
		Cost:                j.Cost,
		Deadline:            j.Deadline,
		RecordingDate:       j.RecordingDate,
		Status:              j.Status,
		CloudLinks:          j.CloudLinks,
		Notes:               j.Notes,
		IsRecurring:         j.IsRecurring,
		CreateCalendarEvent: j.CreateCalendarEvent,
		FinancialTasks:      j.FinancialTasks,
		LinkedContractID:    j.LinkedContractID,
		IsTeamJob:           j.IsTeamJob,
		Tasks:               j.Tasks,
		LinkedDraftIDs:      j.LinkedDraftIDs,
	}
}
