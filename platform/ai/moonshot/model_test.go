package moonshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateContentSendsSystemAndParsesToolCalls(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Happy to help","tool_calls":[{"id":"c1","type":"function","function":{"name":"RequestDepositLink","arguments":"{\"reason\":\"asked\"}"}}]}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("how much is it?", genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("be brief", genai.RoleUser),
		},
	}

	var resp *model.LLMResponse
	for r, err := range m.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp = r
	}

	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "how much is it?" {
		t.Fatalf("unexpected request messages: %+v", got.Messages)
	}
	if resp == nil || len(resp.Content.Parts) != 2 {
		t.Fatalf("expected text and tool call parts, got %+v", resp)
	}
	call := resp.Content.Parts[1].FunctionCall
	if call == nil || call.Name != "RequestDepositLink" || call.Args["reason"] != "asked" {
		t.Fatalf("unexpected tool call %+v", call)
	}
}

func TestGenerateContentSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		if err == nil {
			t.Fatal("expected an error for 503")
		}
	}
}
