package feedback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitNotConfigured(t *testing.T) {
	c := NewClient("")
	err := c.Submit(context.Background(), Submission{Message: "hi"}, "test-agent")
	if err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSubmitRelaysPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.httpClient = server.Client()
	if err := c.Submit(context.Background(), Submission{Message: "loving it", Mood: "happy"}, "browser/1.0"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if received["message"] != "loving it" {
		t.Errorf("message not relayed: %v", received["message"])
	}
	if received["userAgent"] != "browser/1.0" {
		t.Errorf("user agent not attached: %v", received["userAgent"])
	}
	if received["appVersion"] != "v1" {
		t.Errorf("app version not attached: %v", received["appVersion"])
	}
}

func TestSubmitCollectorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.httpClient = server.Client()
	if err := c.Submit(context.Background(), Submission{Message: "hi"}, ""); err == nil {
		t.Error("expected error for 5xx collector response")
	}
}
