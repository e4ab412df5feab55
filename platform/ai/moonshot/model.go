// Package moonshot adapts Moonshot's OpenAI-compatible chat API to the ADK
// model.LLM interface.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultBaseURL = "https://api.moonshot.ai/v1"
	defaultModel   = "kimi-k2.5"
)

// Config for the chat model.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	DisableThinking bool
}

// ChatModel implements model.LLM against the chat completions endpoint.
type ChatModel struct {
	config Config
	client *http.Client
}

// NewModel fills defaults and builds a ChatModel.
func NewModel(cfg Config) *ChatModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ChatModel{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *ChatModel) Name() string {
	return m.config.Model
}

// GenerateContent runs one non-streaming completion.
func (m *ChatModel) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function toolCallFunc `json:"function"`
}

type toolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolDef struct {
	Type     string      `json:"type"`
	Function toolDefFunc `json:"function"`
}

type toolDefFunc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	Thinking    map[string]string `json:"thinking,omitempty"`
	Tools       []toolDef         `json:"tools,omitempty"`
	ToolChoice  string            `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *ChatModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	body := chatRequest{
		Model:    m.config.Model,
		Messages: append(systemMessages(req), convertMessages(req.Contents)...),
		Tools:    convertTools(req),
	}
	if m.config.DisableThinking {
		body.Thinking = map[string]string{"type": "disabled"}
	} else if req.Config != nil && req.Config.Temperature != nil {
		t := float64(*req.Config.Temperature)
		body.Temperature = &t
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat completion status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("chat completion error (%s): %s", result.Error.Type, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return &model.LLMResponse{Content: toContent(result.Choices[0].Message.Content, result.Choices[0].Message.ToolCalls)}, nil
}

func toContent(text string, calls []toolCall) *genai.Content {
	parts := make([]*genai.Part, 0, 1+len(calls))
	if strings.TrimSpace(text) != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	for _, tc := range calls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{"_raw": tc.Function.Arguments}
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Function.Name, Args: args},
		})
	}
	return &genai.Content{Role: genai.RoleModel, Parts: parts}
}

func systemMessages(req *model.LLMRequest) []chatMessage {
	if req == nil || req.Config == nil || req.Config.SystemInstruction == nil {
		return nil
	}
	text := joinText(req.Config.SystemInstruction.Parts)
	if text == "" {
		return nil
	}
	return []chatMessage{{Role: "system", Content: text}}
}

func convertMessages(contents []*genai.Content) []chatMessage {
	messages := make([]chatMessage, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		var calls []toolCall
		var texts []*genai.Part
		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionResponse != nil:
				payload, _ := json.Marshal(part.FunctionResponse.Response)
				messages = append(messages, chatMessage{
					Role:       "tool",
					ToolCallID: part.FunctionResponse.ID,
					Name:       part.FunctionResponse.Name,
					Content:    string(payload),
				})
			case part.FunctionCall != nil:
				args, _ := json.Marshal(part.FunctionCall.Args)
				calls = append(calls, toolCall{
					ID:       part.FunctionCall.ID,
					Type:     "function",
					Function: toolCallFunc{Name: part.FunctionCall.Name, Arguments: string(args)},
				})
			default:
				texts = append(texts, part)
			}
		}
		text := joinText(texts)
		if text == "" && len(calls) == 0 {
			continue
		}
		role := "user"
		if content.Role == genai.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: text, ToolCalls: calls})
	}
	return messages
}

func joinText(parts []*genai.Part) string {
	var b strings.Builder
	for _, part := range parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func convertTools(req *model.LLMRequest) []toolDef {
	if req == nil || req.Config == nil {
		return nil
	}
	var tools []toolDef
	for _, gt := range req.Config.Tools {
		if gt == nil {
			continue
		}
		for _, decl := range gt.FunctionDeclarations {
			if decl == nil || decl.Name == "" {
				continue
			}
			var params any
			switch {
			case decl.ParametersJsonSchema != nil:
				params = decl.ParametersJsonSchema
			case decl.Parameters != nil:
				params = decl.Parameters
			}
			tools = append(tools, toolDef{
				Type:     "function",
				Function: toolDefFunc{Name: decl.Name, Description: decl.Description, Parameters: params},
			})
		}
	}
	return tools
}
