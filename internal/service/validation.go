package service

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
)

// ============================================================
// Input validation: runs before any state change
// ============================================================

func invalid(field, message string) error {
	return &domain.ErrValidation{Field: field, Message: message}
}

func validateJobInput(in *domain.JobInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "O nome do job é obrigatório.")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return invalid("clientId", "Selecione um cliente para o job.")
	}
	if strings.TrimSpace(in.ServiceType) == "" {
		return invalid("serviceType", "Selecione o tipo de serviço.")
	}
	if in.Deadline == "" {
		return invalid("deadline", "Informe o prazo de entrega.")
	}
	if _, _, err := parseDate(in.Deadline); err != nil {
		return invalid("deadline", "Prazo de entrega inválido.")
	}
	if in.RecordingDate != "" {
		if _, _, err := parseDate(in.RecordingDate); err != nil {
			return invalid("recordingDate", "Data de gravação inválida.")
		}
	}
	if in.Value < 0 {
		return invalid("value", "O valor do job não pode ser negativo.")
	}
	if in.Cost < 0 {
		return invalid("cost", "O custo do job não pode ser negativo.")
	}
	if in.Status != "" && !in.Status.Valid() {
		return invalid("status", "Status inválido.")
	}
	for _, link := range in.CloudLinks {
		if !isHTTPURL(link) {
			return invalid("cloudLinks", "Link inválido: "+link)
		}
	}
	for _, ft := range in.FinancialTasks {
		if strings.TrimSpace(ft.Title) == "" {
			return invalid("financialTasks", "Toda tarefa financeira precisa de um título.")
		}
	}
	for _, t := range in.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return invalid("tasks", "Toda tarefa precisa de um título.")
		}
	}
	return nil
}

func validateClient(c *domain.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "O nome do cliente é obrigatório.")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return invalid("email", "E-mail inválido.")
		}
	}
	if c.CPF != "" && len(onlyDigits(c.CPF)) != 11 {
		return invalid("cpf", "O CPF deve ter 11 dígitos.")
	}
	if c.Birthday != "" {
		if _, _, err := parseDate(c.Birthday); err != nil {
			return invalid("birthday", "Data de aniversário inválida.")
		}
	}
	return nil
}

func validateContract(c *domain.Contract) error {
	if strings.TrimSpace(c.Title) == "" {
		return invalid("title", "O título do contrato é obrigatório.")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return invalid("clientId", "Selecione um cliente para o contrato.")
	}
	switch c.Duration {
	case "", domain.DurationPontual, domain.DurationSemestral, domain.DurationAnual:
	default:
		return invalid("duration", "Duração de contrato inválida.")
	}
	return nil
}

func validateDraft(d *domain.DraftNote) error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "O título do rascunho é obrigatório.")
	}
	switch d.Type {
	case "", domain.DraftText, domain.DraftScript:
	default:
		return invalid("type", "Tipo de rascunho inválido.")
	}
	for _, l := range d.ScriptLines {
		if l.Duration < 0 {
			return invalid("scriptLines", "A duração de uma cena não pode ser negativa.")
		}
	}
	for _, a := range d.Attachments {
		if a.URL != "" && !isHTTPURL(a.URL) && !strings.HasPrefix(a.URL, "data:") {
			return invalid("attachments", "Anexo com link inválido: "+a.Name)
		}
	}
	return nil
}

func validateSettings(s *domain.AppSettings) error {
	for _, m := range s.TeamMembers {
		if strings.TrimSpace(m) == "" {
			return invalid("teamMembers", "Membros da equipe precisam de um nome de usuário.")
		}
	}
	if s.CustomLinkURL != "" && !isHTTPURL(s.CustomLinkURL) {
		return invalid("customLinkUrl", "Link personalizado inválido.")
	}
	return nil
}

func validatePayment(p *domain.Payment) error {
	if p.Amount <= 0 {
		return invalid("amount", "O valor do pagamento deve ser maior que zero.")
	}
	if p.Date != "" {
		if _, _, err := parseDate(p.Date); err != nil {
			return invalid("date", "Data de pagamento inválida.")
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
