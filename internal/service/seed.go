package service

import (
	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
)

// sampleData builds the demo dataset a fresh account starts with: five
// clients, five jobs owned by the user, one contract and one script.
func (s *Session) sampleData() domain.ExportData {
	now := s.deps.Now().UTC()
	created := toISO(now)
	day := func(offset int) string { return toISO(now.AddDate(0, 0, offset)) }
	owner := usernameOrUnknown(s.user.Username)

	clients := []domain.Client{
		{Name: "Marina Costa", Company: "Café Aurora", Email: "marina@cafeaurora.com.br", Phone: "(11) 98888-1001", Instagram: "@cafeaurora", Birthday: "1990-03-14"},
		{Name: "Rafael Lima", Company: "Lima Arquitetura", Email: "rafael@limaarq.com.br", Phone: "(11) 97777-2002", Instagram: "@limaarq"},
		{Name: "Beatriz Souza", Company: "Studio Fit", Email: "bia@studiofit.com.br", Phone: "(21) 96666-3003", Instagram: "@studiofit", Birthday: "1987-11-02"},
		{Name: "Carlos Mendes", Company: "Mendes Imóveis", Email: "carlos@mendesimoveis.com.br", Phone: "(31) 95555-4004"},
		{Name: "Juliana Rocha", Company: "Doce Ateliê", Email: "ju@doceatelie.com.br", Phone: "(41) 94444-5005", Instagram: "@doceatelie"},
	}
	for i := range clients {
		clients[i].ID = s.deps.NewID()
		clients[i].CreatedAt = created
	}

	contract := domain.Contract{
		ID:            s.deps.NewID(),
		Title:         "Contrato de Social Media - Café Aurora",
		ClientID:      clients[0].ID,
		Content:       "CONTRATANTE: Café Aurora.\nOBJETO: produção mensal de 12 posts e 4 reels.\nVALOR: R$ 2.500,00 mensais.\nVIGÊNCIA: 12 meses a partir da assinatura.",
		CreatedAt:     created,
		OwnerID:       s.user.ID,
		OwnerUsername: owner,
		IsSigned:      true,
		Duration:      domain.DurationAnual,
	}

	script := domain.DraftNote{
		ID:    s.deps.NewID(),
		Title: "Roteiro: Reels de lançamento",
		Type:  domain.DraftScript,
		ScriptLines: []domain.ScriptLine{
			{ID: s.deps.NewID(), Scene: "Abertura", Description: "Close no café sendo servido, luz natural.", Duration: 5},
			{ID: s.deps.NewID(), Scene: "Produto", Description: "Plano detalhe do novo blend com a embalagem.", Duration: 8},
			{ID: s.deps.NewID(), Scene: "Chamada", Description: "Marina convida para a degustação de sábado.", Duration: 7},
		},
		Attachments: []domain.Attachment{},
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	type sampleJob struct {
		name, service string
		client        int
		value, cost   float64
		deadline      int
		status        domain.JobStatus
		recurring     bool
		contract      bool
	}
	samples := []sampleJob{
		{"Social Media Mensal", domain.ServiceSocialMedia, 0, 2500, 400, 5, domain.StatusProducao, true, true},
		{"Vídeo Institucional", domain.ServiceVideo, 1, 4800, 1200, 12, domain.StatusBriefing, false, false},
		{"Ensaio Fotográfico", domain.ServicePhoto, 2, 1500, 300, 2, domain.StatusRevisao, false, false},
		{"Tour Virtual de Imóvel", domain.ServiceVideo, 3, 2200, 500, -3, domain.StatusFinalizado, false, false},
		{"Identidade Visual", domain.ServiceDesign, 4, 3200, 0, 20, domain.StatusPago, false, false},
	}

	jobs := make([]domain.Job, 0, len(samples))
	for _, sj := range samples {
		j := domain.Job{
			ID:             s.deps.NewID(),
			Name:           sj.name,
			ClientID:       clients[sj.client].ID,
			ServiceType:    sj.service,
			Value:          sj.value,
			Cost:           sj.cost,
			Deadline:       day(sj.deadline),
			Status:         sj.status,
			IsRecurring:    sj.recurring,
			CreatedAt:      created,
			OwnerID:        s.user.ID,
			OwnerUsername:  owner,
			CloudLinks:     []string{},
			Tasks:          []domain.Task{},
			LinkedDraftIDs: []string{},
		}
		normalizeJob(&j)
		if sj.contract {
			j.LinkedContractID = contract.ID
			j.LinkedDraftIDs = []string{script.ID}
		}
		if sj.status == domain.StatusPago {
			j.Payments = []domain.Payment{{ID: s.deps.NewID(), Amount: sj.value, Date: created, Method: "PIX"}}
		}
		jobs = append(jobs, j)
	}

	return domain.ExportData{
		Jobs:       jobs,
		Clients:    clients,
		Contracts:  []domain.Contract{contract},
		DraftNotes: []domain.DraftNote{script},
	}
}
