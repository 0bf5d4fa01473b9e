package domain

// ============================================================
// Generative AI
// ============================================================

// Roles of a message in the model conversation.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// ToolParameter describes one argument of a tool exposed to the model.
type ToolParameter struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolDeclaration is a function the model may ask to run.
type ToolDeclaration struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ToolParameter `json:"parameters"`
	Required    []string                 `json:"required,omitempty"`
}

// ToolCall is the model asking to run a tool.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult carries a ToolCall result back to the model.
type ToolResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ChatTurn is one conversation message: text, calls or results.
type ChatTurn struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// GenerateRequest is the payload sent to the AI provider.
type GenerateRequest struct {
	SystemPrompt string
	Turns        []ChatTurn
	Tools        []ToolDeclaration
}

// GenerateResponse holds the model text and tool calls.
type GenerateResponse struct {
	Text       string
	ToolCalls  []ToolCall
	TokensUsed TokenUsage
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates the usage of another call.
func (t *TokenUsage) Add(o TokenUsage) {
	t.PromptTokens += o.PromptTokens
	t.CompletionTokens += o.CompletionTokens
	t.TotalTokens += o.TotalTokens
}

// ============================================================
// Assistant API: Request/Response
// ============================================================

// DraftRequest is the body of POST /v1/ai/contract and /v1/ai/proposal.
type DraftRequest struct {
	ClientID string `json:"clientId,omitempty"`
	JobID    string `json:"jobId,omitempty"`
	Brief    string `json:"brief"`
}

// DraftResponse is the generated contract or proposal text.
type DraftResponse struct {
	Content    string     `json:"content"`
	TokenUsage TokenUsage `json:"tokenUsage"`
}

// ChatRequest is the body of POST /v1/ai/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the final answer of the tool loop.
type ChatResponse struct {
	Reply         string     `json:"reply"`
	ToolsExecuted []string   `json:"toolsExecuted,omitempty"`
	TokenUsage    TokenUsage `json:"tokenUsage"`
}
