package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/ai"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newGemini(t *testing.T, h http.HandlerFunc) (*ai.GeminiClient, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	metrics := observability.NewMetrics()
	return ai.NewGeminiClient(
		&http.Client{Timeout: 2 * time.Second},
		srv.URL, "test-key", "gemini-test",
		resilience.NewCircuitBreaker("gemini-test"),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond},
		zap.NewNop(), metrics,
	), metrics
}

func TestGenerate_TextAndUsage(t *testing.T) {
	var captured map[string]any
	client, metrics := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &captured)
		io.WriteString(w, `{
			"candidates":[{"content":{"role":"model","parts":[{"text":"Contrato "},{"text":"pronto"}]}}],
			"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}
		}`)
	})

	resp, err := client.Generate(context.Background(), &domain.GenerateRequest{
		SystemPrompt: "Você é um assistente.",
		Turns:        []domain.ChatTurn{{Role: domain.RoleUser, Text: "Escreva um contrato"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "Contrato pronto" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.TokensUsed.TotalTokens != 15 {
		t.Errorf("unexpected usage %+v", resp.TokensUsed)
	}
	if _, ok := captured["systemInstruction"]; !ok {
		t.Errorf("system prompt not sent: %v", captured)
	}
	if snap := metrics.GetAppSnapshot(); snap.AIPromptTokens != 10 || snap.AICompletionTokens != 5 {
		t.Errorf("tokens not recorded: %+v", snap)
	}
}

func TestGenerate_FunctionCalls(t *testing.T) {
	var captured struct {
		Contents []struct {
			Role  string           `json:"role"`
			Parts []map[string]any `json:"parts"`
		} `json:"contents"`
		Tools []struct {
			FunctionDeclarations []struct {
				Name string `json:"name"`
			} `json:"functionDeclarations"`
		} `json:"tools"`
	}
	client, _ := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"functionCall":{"name":"create_client","args":{"name":"Ana"}}}]}}]}`)
	})

	resp, err := client.Generate(context.Background(), &domain.GenerateRequest{
		Turns: []domain.ChatTurn{
			{Role: domain.RoleUser, Text: "cadastre a Ana"},
			{Role: domain.RoleModel, ToolCalls: []domain.ToolCall{{Name: "create_job", Args: map[string]any{}}}},
			{Role: domain.RoleTool, ToolResults: []domain.ToolResult{{Name: "create_job", Response: map[string]any{"ok": true}}}},
		},
		Tools: []domain.ToolDeclaration{{
			Name:        "create_client",
			Description: "Cria um cliente",
			Parameters:  map[string]domain.ToolParameter{"name": {Type: "STRING"}},
			Required:    []string{"name"},
		}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "create_client" || resp.ToolCalls[0].Args["name"] != "Ana" {
		t.Errorf("unexpected tool calls %+v", resp.ToolCalls)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].FunctionDeclarations[0].Name != "create_client" {
		t.Errorf("tools not declared: %+v", captured.Tools)
	}
	if len(captured.Contents) != 3 || captured.Contents[2].Role != "user" {
		t.Errorf("tool results must be sent with the user role: %+v", captured.Contents)
	}
}

func TestGenerate_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	client, _ := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := client.Generate(context.Background(), &domain.GenerateRequest{
		Turns: []domain.ChatTurn{{Role: domain.RoleUser, Text: "oi"}},
	})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	var provider *domain.ErrProvider
	if !errors.As(err, &provider) || provider.Code != "INVALID_ARGUMENT" {
		t.Errorf("expected provider details, got %v", err)
	}
	if calls != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls)
	}
}
