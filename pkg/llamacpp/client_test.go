package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONQuery(t *testing.T) {
	var got ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"happy\": 0.9}"}}]}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	answer, err := c.JSONQuery(context.Background(), "qwen2.5-vl", "emotions?", "aGVsbG8=")
	if err != nil {
		t.Fatalf("JSONQuery failed: %v", err)
	}
	if answer != `{"happy": 0.9}` {
		t.Errorf("unexpected answer %q", answer)
	}

	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" || got.Temperature != 0.1 {
		t.Errorf("JSON mode not requested: %+v", got)
	}
	parts, _ := got.Messages[0].Content.([]interface{})
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %v", got.Messages[0].Content)
	}
	image, _ := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	if url, _ := image["url"].(string); !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("image not sent as data URL: %v", image)
	}
}

func TestSimpleQueryContentParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"OK"}]}}]}`))
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, 0)
	answer, err := c.SimpleQuery(context.Background(), "m", "hi", "")
	if err != nil || answer != "OK" {
		t.Errorf("got %q, %v", answer, err)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusInternalServerError, `{"error":"boom"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"empty text", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
		{"not json", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, 0)
			if _, err := c.JSONQuery(context.Background(), "m", "p", ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("://nope", 0); err == nil {
		t.Error("expected error for invalid URL")
	}
}
