package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicClient_CompleteWithSystem_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("Expected /messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Expected x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}

		var body AnthropicRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.System != "you write tests" {
			t.Errorf("Expected system prompt in top-level field, got %q", body.System)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("Expected a single user message, got %v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"content": [
				{"type": "text", "text": "Here are "},
				{"type": "text", "text": "the tests."}
			]
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	resp, err := client.CompleteWithSystem(context.Background(), "you write tests", "the source")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if resp != "Here are the tests." {
		t.Errorf("Expected concatenated text blocks, got %q", resp)
	}
}

func TestAnthropicClient_RetryOnOverload(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	resp, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete failed after retry: %v", err)
	}
	if resp != "ok" {
		t.Errorf("Expected 'ok', got %q", resp)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestAnthropicClient_MissingKey(t *testing.T) {
	client := NewAnthropicClient("")
	_, err := client.Complete(context.Background(), "hi")
	if err == nil {
		t.Fatal("Expected error when API key is missing")
	}
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	_, err := client.Complete(context.Background(), "hi")
	if err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicClient_DefaultModel(t *testing.T) {
	client := NewAnthropicClient("k")
	if client.GetModel() != "claude-sonnet-4-20250514" {
		t.Errorf("Unexpected default model: %s", client.GetModel())
	}
}
