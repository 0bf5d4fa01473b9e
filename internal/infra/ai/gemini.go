// Package ai holds the HTTP client of the generative AI provider (Gemini).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ai")

// ============================================================
// GeminiClient: implements port.TextGenerator
// ============================================================
//
// Calls POST {baseURL}/v1beta/models/{model}:generateContent with the Gemini
// REST contract:
//
//	Request:  {"systemInstruction": {...}, "contents": [...], "tools": [{"functionDeclarations": [...]}]}
//	Response: {"candidates": [{"content": {"parts": [...]}}], "usageMetadata": {...}}
//
// 4xx answers (bad key, rejected payload) are not retried and do not count
// as circuit breaker failures.

type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewGeminiClient creates the client. baseURL must not end with "/".
func NewGeminiClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger, metrics *observability.Metrics) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// --- Gemini wire format ---

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSchema struct {
	Type        string                  `json:"type"`
	Description string                  `json:"description,omitempty"`
	Enum        []string                `json:"enum,omitempty"`
	Properties  map[string]geminiSchema `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
}

type geminiFunctionDeclaration struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  *geminiSchema `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// buildRequest maps the domain request to the Gemini payload.
func buildRequest(req *domain.GenerateRequest) *geminiRequest {
	out := &geminiRequest{}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	for _, turn := range req.Turns {
		c := geminiContent{Role: turn.Role}
		if turn.Text != "" {
			c.Parts = append(c.Parts, geminiPart{Text: turn.Text})
		}
		for _, call := range turn.ToolCalls {
			c.Parts = append(c.Parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: call.Name, Args: call.Args}})
		}
		for _, res := range turn.ToolResults {
			c.Parts = append(c.Parts, geminiPart{FunctionResponse: &geminiFunctionResponse{Name: res.Name, Response: res.Response}})
		}
		// Gemini only knows "user" and "model"; tool results go as "user".
		if c.Role == domain.RoleTool {
			c.Role = domain.RoleUser
		}
		if len(c.Parts) > 0 {
			out.Contents = append(out.Contents, c)
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			props := make(map[string]geminiSchema, len(t.Parameters))
			for name, p := range t.Parameters {
				props[name] = geminiSchema{Type: p.Type, Description: p.Description, Enum: p.Enum}
			}
			decls = append(decls, geminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  &geminiSchema{Type: "OBJECT", Properties: props, Required: t.Required},
			})
		}
		out.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}
	return out
}

// Generate sends the request and returns text and tool calls.
func (c *GeminiClient) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	ctx, span := tracer.Start(ctx, "GeminiClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", c.model),
		attribute.Int("ai.turns", len(req.Turns)),
		attribute.Int("ai.tools", len(req.Tools)),
	)

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))

	var gr geminiResponse
	err = resilience.Execute(ctx, c.cb, c.cfg, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return resilience.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			var ge geminiError
			_ = json.Unmarshal(respBody, &ge)
			perr := &domain.ErrProvider{Status: resp.StatusCode, Code: ge.Error.Status, Message: ge.Error.Message}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(perr)
			}
			return perr
		}
		gr = geminiResponse{}
		return json.Unmarshal(respBody, &gr)
	})
	if err != nil {
		c.metrics.IncrExternalError("gemini")
		c.logger.Error("gemini: generateContent failed",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}

	out := &domain.GenerateResponse{
		TokensUsed: domain.TokenUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
	}
	if len(gr.Candidates) > 0 {
		for _, part := range gr.Candidates[0].Content.Parts {
			if part.FunctionCall != nil {
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				out.ToolCalls = append(out.ToolCalls, domain.ToolCall{Name: part.FunctionCall.Name, Args: args})
				continue
			}
			out.Text += part.Text
		}
	}

	c.metrics.RecordTokens(out.TokensUsed.PromptTokens, out.TokensUsed.CompletionTokens)
	span.SetAttributes(attribute.Int("ai.tokens_total", out.TokensUsed.TotalTokens))
	c.logger.Debug("gemini: generateContent OK",
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Int("tokens", out.TokensUsed.TotalTokens),
	)
	return out, nil
}
