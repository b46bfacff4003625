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
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"prompt_eval_count": 4,
			"eval_count":        3,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
	if resp.Usage.TotalTokens != 7 {
		t.Fatalf("expected usage 7, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaGenerateJSONFormat(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": "{}"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}, JSON: true, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if captured.Format != "json" {
		t.Fatalf("expected format json, got %q", captured.Format)
	}
	if captured.Stream {
		t.Fatalf("expected non-streaming request")
	}
	if captured.Options["temperature"] != 0.2 {
		t.Fatalf("expected temperature option, got %v", captured.Options)
	}
}

func TestOllamaGenerateErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusBadRequest, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{http.StatusNotFound, func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		status := tc.status
		srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "boom"})
		}))
		c := NewOllamaClient(srv.URL, 2*time.Second)
		_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
		srv.Close()
		if !tc.check(err) {
			t.Fatalf("status %d: unexpected error %T %v", status, err, err)
		}
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaGenerateMultipleMessages(t *testing.T) {
	var capturedRequest ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&capturedRequest); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "response"},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second)
	messages := []Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there!"},
		{Role: "user", Content: "How are you?"},
	}
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: messages}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(capturedRequest.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(capturedRequest.Messages))
	}
	for i, expected := range messages {
		if capturedRequest.Messages[i].Role != expected.Role || capturedRequest.Messages[i].Content != expected.Content {
			t.Fatalf("message %d: expected %+v, got %+v", i, expected, capturedRequest.Messages[i])
		}
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := newIPv4Server(t, http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewOllamaClient(url, time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
}
