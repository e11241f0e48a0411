package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/feedback"
	"nuuko/internal/models"
	"nuuko/internal/prompts"
	"nuuko/internal/store"
	"nuuko/internal/summary"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(context.Background(), store.Options{
		DatabasePath: filepath.Join(dir, "test.db"),
		DataDir:      filepath.Join(dir, "flat"),
	})
	if err != nil {
		t.Fatalf("store open failed: %v", err)
	}
	svc, err := summary.NewService(summary.Options{
		Store:        st,
		APIKey:       "test-key",
		Threshold:    200000,
		DataDir:      filepath.Join(dir, "summary"),
		ForceOffline: true,
	})
	if err != nil {
		t.Fatalf("summary service failed: %v", err)
	}
	engine, err := prompts.NewEngine()
	if err != nil {
		t.Fatalf("prompt engine failed: %v", err)
	}

	app := fiber.New()
	Register(app, Deps{
		Store:    st,
		Summary:  svc,
		Prompts:  engine,
		Feedback: feedback.NewClient(""),
		Hub:      NewHub(st),
	})
	return app, st
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/entries", models.Entry{
		ID:      "e1",
		Content: "a short test entry",
		Mood:    "calm",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save returned %d: %s", resp.StatusCode, body)
	}
	var saved models.Entry
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.CreatedAt.IsZero() || saved.WordCount != 4 {
		t.Errorf("entry not normalized on save: %+v", saved)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/entries", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list returned %d", resp.StatusCode)
	}
	var list struct {
		Entries []models.Entry `json:"entries"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list.Entries))
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/entries/e1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/entries/e1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestSaveEntryWithoutIDRejected(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/entries", models.Entry{Content: "no id"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestEntryNumericIDAccepted(t *testing.T) {
	app, _ := newTestApp(t)
	raw := []byte(`{"id": 1719324000000, "content": "from an old export"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("numeric id rejected: %d", resp.StatusCode)
	}
	var saved models.Entry
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID != "1719324000000" {
		t.Errorf("numeric id not coerced to string: %q", saved.ID)
	}
}

func TestSettingsPatch(t *testing.T) {
	app, st := newTestApp(t)

	name := "jo"
	resp, body := doJSON(t, app, http.MethodPatch, "/api/v1/settings", models.SettingsPatch{UserName: &name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch returned %d: %s", resp.StatusCode, body)
	}
	var settings models.Settings
	if err := json.Unmarshal(body, &settings); err != nil {
		t.Fatal(err)
	}
	if settings.UserName != "jo" {
		t.Errorf("patch not applied: %q", settings.UserName)
	}
	// Untouched fields keep their defaults.
	if settings.SummaryCadence != models.CadenceWeekly {
		t.Errorf("unrelated field changed: %q", settings.SummaryCadence)
	}
	if st.Settings().UserName != "jo" {
		t.Error("patch not persisted")
	}
}

func TestSummaryGenerateQueuesOffline(t *testing.T) {
	app, st := newTestApp(t)
	if _, err := st.SaveEntry(context.Background(), models.Entry{ID: "e1", Content: "words here", WordCount: 2}); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/summaries/generate", summary.Request{Cadence: models.CadenceWeekly})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 accepted, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Queued  bool `json:"queued"`
		Pending int  `json:"pending"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Queued || out.Pending != 1 {
		t.Errorf("unexpected queue response: %+v", out)
	}
}

func TestSummaryGenerateNoEntries(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/summaries/generate", summary.Request{Cadence: models.CadenceWeekly})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty range, got %d", resp.StatusCode)
	}
}

func TestPromptEndpointPersistsSelection(t *testing.T) {
	app, st := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/prompt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prompt returned %d", resp.StatusCode)
	}
	var sel prompts.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		t.Fatal(err)
	}
	if sel.PrimaryPrompt == "" || sel.Bucket == "" {
		t.Errorf("incomplete selection: %+v", sel)
	}
	if st.Settings().CurrentPrompt != sel.PrimaryPrompt {
		t.Error("served prompt not recorded in settings")
	}
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("unexpected health payload: %v", health)
	}
	if health["backend"] != "sqlite" {
		t.Errorf("expected sqlite backend, got %v", health["backend"])
	}
}

func TestExportImportOverHTTP(t *testing.T) {
	app, st := newTestApp(t)
	if _, err := st.SaveEntry(context.Background(), models.Entry{ID: "e1", Content: "export me", WordCount: 2}); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/data/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export returned %d", resp.StatusCode)
	}
	var payload models.ExportPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Entries) != 1 {
		t.Fatalf("export missing entries: %d", len(payload.Entries))
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/data", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear returned %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/data/import", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import returned %d", resp.StatusCode)
	}
	if len(st.Entries()) != 1 {
		t.Errorf("import did not restore entries")
	}
}
