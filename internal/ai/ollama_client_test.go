package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"charts":[]}`},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != `{"charts":[]}` {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
}

func TestOllamaGenerateBadRequest(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad request"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	var bad *BadRequestError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadRequestError, got %T: %v", err, err)
	}
	if bad.Message != "bad request" {
		t.Fatalf("unexpected message %q", bad.Message)
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaForwardsMessagesAndTools(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "llama3:latest",
			"message": map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []any{map[string]any{
					"function": map[string]any{
						"name":      "submit_charts",
						"arguments": map[string]any{"charts": []any{}},
					},
				}},
			},
			"done":        true,
			"done_reason": "stop",
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	messages := []Message{
		{Role: "system", Content: "You are a data visualization expert."},
		{Role: "user", Content: "Suggest charts"},
	}
	tool := FunctionTool("submit_charts", "", json.RawMessage(`{"type":"object"}`))
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: messages, Tools: []Tool{tool}, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "Suggest charts" {
		t.Fatalf("messages not preserved: %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Stream {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if captured.Format != "" {
		t.Fatalf("format should be unset when tools are sent, got %q", captured.Format)
	}
	msg, _ := resp.FirstMessage()
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", msg)
	}
	if got := msg.ToolCalls[0].Function.Arguments; got != `{"charts":[]}` {
		t.Fatalf("arguments = %q", got)
	}
}

func TestOllamaJSONFormat(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "{}"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{
		Model:          "llama3:latest",
		Messages:       []Message{{Role: "user", Content: "hi"}},
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if captured.Format != "json" {
		t.Fatalf("format = %q, want json", captured.Format)
	}
}

func TestToolArguments(t *testing.T) {
	cases := map[string]string{
		``:                  "{}",
		`{"a":1}`:           `{"a":1}`,
		`"{\"charts\":[]}"`: `{"charts":[]}`,
		`  {"b":true}  `:    `{"b":true}`,
	}
	for in, want := range cases {
		if got := toolArguments(json.RawMessage(in)); got != want {
			t.Fatalf("toolArguments(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", 500*time.Millisecond, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var un *UnreachableError
	if !errors.As(err, &un) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
}
