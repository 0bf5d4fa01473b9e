package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/assistant")

const defaultMaxToolSteps = 5

// AssistantService drafts contracts and proposals and runs the tool-calling
// chat that edits session data.
type AssistantService struct {
	gen      port.TextGenerator
	maxSteps int
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAssistantService creates the service. gen may be nil when AI is not
// configured; calls then fail with ErrExternalService.
func NewAssistantService(gen port.TextGenerator, maxSteps int, metrics *observability.Metrics, logger *zap.Logger) *AssistantService {
	if maxSteps <= 0 {
		maxSteps = defaultMaxToolSteps
	}
	return &AssistantService{gen: gen, maxSteps: maxSteps, metrics: metrics, logger: logger}
}

var errAINotConfigured = errors.New("GEMINI_API_KEY não configurada")

// ============================================================
// Drafts: POST /v1/ai/contract and /v1/ai/proposal
// ============================================================

const contractSystemPrompt = `Você é um assistente jurídico de um estúdio de produção audiovisual brasileiro.
Redija contratos de prestação de serviço claros, em português, com cláusulas de objeto,
prazo, valor, forma de pagamento, direitos de imagem e rescisão. Responda apenas com o texto do contrato.`

const proposalSystemPrompt = `Você é o comercial de um estúdio de produção audiovisual brasileiro.
Escreva propostas comerciais objetivas e persuasivas, em português, com escopo, entregáveis,
cronograma e investimento. Responda apenas com o texto da proposta.`

// DraftContract writes a contract text for the given client.
func (a *AssistantService) DraftContract(ctx context.Context, s *Session, req *domain.DraftRequest) (*domain.DraftResponse, error) {
	ctx, span := tracer.Start(ctx, "Assistant.DraftContract")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", req.ClientID))

	if req.ClientID == "" && strings.TrimSpace(req.Brief) == "" {
		return nil, invalid("brief", "Informe o cliente ou uma descrição do contrato.")
	}

	var b strings.Builder
	if req.ClientID != "" {
		c, ok := findClient(s.Clients(), req.ClientID)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "cliente", ID: req.ClientID}
		}
		fmt.Fprintf(&b, "Contratante: %s", c.Name)
		if c.Company != "" {
			fmt.Fprintf(&b, " (%s)", c.Company)
		}
		if c.CPF != "" {
			fmt.Fprintf(&b, ", CPF %s", c.CPF)
		}
		b.WriteString(".\n")
	}
	if brief := strings.TrimSpace(req.Brief); brief != "" {
		fmt.Fprintf(&b, "Detalhes: %s\n", brief)
	}

	return a.draft(ctx, s, "contract", contractSystemPrompt, b.String())
}

// DraftProposal writes a commercial proposal from a job.
func (a *AssistantService) DraftProposal(ctx context.Context, s *Session, req *domain.DraftRequest) (*domain.DraftResponse, error) {
	ctx, span := tracer.Start(ctx, "Assistant.DraftProposal")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", req.JobID))

	if req.JobID == "" && strings.TrimSpace(req.Brief) == "" {
		return nil, invalid("brief", "Informe o job ou uma descrição da proposta.")
	}

	var b strings.Builder
	if req.JobID != "" {
		j, ok := findJob(s.Jobs(), req.JobID)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "job", ID: req.JobID}
		}
		fmt.Fprintf(&b, "Projeto: %s\nServiço: %s\nValor: R$ %.2f\nPrazo: %s\n", j.Name, j.ServiceType, j.Value, j.Deadline)
		if c, ok := findClient(s.Clients(), j.ClientID); ok {
			fmt.Fprintf(&b, "Cliente: %s\n", c.Name)
		}
	}
	if brief := strings.TrimSpace(req.Brief); brief != "" {
		fmt.Fprintf(&b, "Detalhes: %s\n", brief)
	}

	return a.draft(ctx, s, "proposal", proposalSystemPrompt, b.String())
}

func (a *AssistantService) draft(ctx context.Context, s *Session, kind, system, prompt string) (*domain.DraftResponse, error) {
	if a.gen == nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: errAINotConfigured}
	}
	if err := s.ReserveAI(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.gen.Generate(ctx, &domain.GenerateRequest{
		SystemPrompt: system,
		Turns:        []domain.ChatTurn{{Role: domain.RoleUser, Text: prompt}},
	})
	a.metrics.RecordRequestDuration("ai_"+kind, time.Since(start))
	if err != nil {
		a.logger.Error("ai draft failed",
			zap.String("kind", kind),
			zap.String("user_id", s.User().ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("ai draft %s: %w", kind, err)
	}

	return &domain.DraftResponse{Content: strings.TrimSpace(resp.Text), TokenUsage: resp.TokensUsed}, nil
}

// ============================================================
// Chat with tools: POST /v1/ai/chat
// ============================================================

const chatSystemPrompt = `Você é o assistente do painel de um estúdio de produção audiovisual.
Responda em português. Quando o usuário pedir para cadastrar clientes, jobs, contratos ou roteiros,
ou mudar o status de um job, use as ferramentas disponíveis. Status válidos: Briefing, Produção,
Revisão, Finalizado, Pago, Outros. Datas no formato AAAA-MM-DD.`

// Chat runs the tool loop until the model answers with text only or the step
// limit is reached. One user message takes one limiter token however many
// steps the loop makes.
func (a *AssistantService) Chat(ctx context.Context, s *Session, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Chat")
	defer span.End()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalid("message", "Digite uma mensagem.")
	}
	if a.gen == nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: errAINotConfigured}
	}
	if err := s.ReserveAI(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("ai_chat", time.Since(start))
	}()

	turns := []domain.ChatTurn{{Role: domain.RoleUser, Text: message}}
	out := &domain.ChatResponse{}

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.gen.Generate(ctx, &domain.GenerateRequest{
			SystemPrompt: chatSystemPrompt,
			Turns:        turns,
			Tools:        chatTools,
		})
		if err != nil {
			a.logger.Error("ai chat failed",
				zap.String("user_id", s.User().ID),
				zap.Int("step", step),
				zap.Error(err),
			)
			return nil, fmt.Errorf("ai chat: %w", err)
		}
		out.TokenUsage.Add(resp.TokensUsed)

		if len(resp.ToolCalls) == 0 {
			out.Reply = strings.TrimSpace(resp.Text)
			return out, nil
		}

		turns = append(turns, domain.ChatTurn{Role: domain.RoleModel, Text: resp.Text, ToolCalls: resp.ToolCalls})
		results := make([]domain.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, domain.ToolResult{Name: call.Name, Response: a.runTool(ctx, s, call)})
			out.ToolsExecuted = append(out.ToolsExecuted, call.Name)
		}
		turns = append(turns, domain.ChatTurn{Role: domain.RoleTool, ToolResults: results})
	}

	a.logger.Warn("ai chat: tool step limit reached", zap.String("user_id", s.User().ID), zap.Int("max_steps", a.maxSteps))
	out.Reply = "Executei as ações solicitadas, mas não consegui concluir a resposta. Confira os dados no painel."
	return out, nil
}

// runTool executes one tool call and returns the result the model receives.
// Errors become {"error": message}.
func (a *AssistantService) runTool(ctx context.Context, s *Session, call domain.ToolCall) map[string]any {
	ctx, span := tracer.Start(ctx, "Assistant.tool."+call.Name)
	defer span.End()

	handler, ok := toolHandlers[call.Name]
	if !ok {
		return map[string]any{"error": "ferramenta desconhecida: " + call.Name}
	}

	res, err := handler(ctx, s, call.Args)
	var persistErr *domain.ErrPersistence
	switch {
	case errors.As(err, &persistErr):
		// the data is in the session; only the write failed
		a.logger.Warn("ai tool: persistence failed", zap.String("tool", call.Name), zap.Error(err))
		res["aviso"] = persistErr.Error()
	case err != nil:
		a.logger.Info("ai tool rejected", zap.String("tool", call.Name), zap.Error(err))
		return map[string]any{"error": err.Error()}
	}
	return res
}
