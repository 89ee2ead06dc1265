package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected x-goog-api-key test-key, got %q", r.Header.Get("x-goog-api-key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected request path %q", r.URL.Path)
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
			t.Fatalf("unexpected contents: %+v", req.Contents)
		}
		if req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("expected prompt 'hello', got %q", req.Contents[0].Parts[0].Text)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content":      map[string]any{"parts": []map[string]any{{"text": "world"}}},
					"finishReason": "STOP",
				},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     120,
				"candidatesTokenCount": 45,
				"totalTokenCount":      165,
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	result, err := c.Generate(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "world" {
		t.Errorf("expected 'world', got %q", result.Text)
	}
	if result.InputTokens != 120 {
		t.Errorf("expected 120 input tokens, got %d", result.InputTokens)
	}
	if result.OutputTokens != 45 {
		t.Errorf("expected 45 output tokens, got %d", result.OutputTokens)
	}
}

func TestGenerate_InlineAudio(t *testing.T) {
	audioBytes := []byte{0x49, 0x44, 0x33, 0x04, 0x00}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents[0].Parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(req.Contents[0].Parts))
		}
		inline := req.Contents[0].Parts[1].InlineData
		if inline == nil {
			t.Fatal("expected inlineData part")
		}
		if inline.MIMEType != "audio/mpeg" {
			t.Errorf("expected mime audio/mpeg, got %q", inline.MIMEType)
		}
		if !bytes.Equal(inline.Data, audioBytes) {
			t.Errorf("audio bytes did not round-trip: %v", inline.Data)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	result, err := c.Generate(context.Background(), "transcribe this", &Audio{MIMEType: "audio/mpeg", Data: audioBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("expected 'ok', got %q", result.Text)
	}
}

func TestGenerate_MissingUsageMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "no usage"}}}},
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	result, err := c.Generate(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InputTokens != 0 || result.OutputTokens != 0 {
		t.Errorf("expected zero tokens without usage metadata, got %d/%d", result.InputTokens, result.OutputTokens)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    400,
				"message": "API key not valid",
				"status":  "INVALID_ARGUMENT",
			},
		})
	}))
	defer server.Close()

	c := NewClient("bad-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Generate(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected error for API error response")
	}
	if !strings.Contains(err.Error(), "INVALID_ARGUMENT") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"candidates": []map[string]any{}})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Generate(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
