package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/orchestraai/orchestra/internal/conversation"
	"github.com/orchestraai/orchestra/internal/llm"
	"github.com/orchestraai/orchestra/internal/orchestra"
	"github.com/orchestraai/orchestra/internal/phase"
)

type stubAdapter struct {
	models []string
}

func (a *stubAdapter) Name() string { return "stub" }

func (a *stubAdapter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Provider: "stub", Model: req.Model, Content: "ack"}, nil
}

func (a *stubAdapter) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Provider: "stub", Model: req.Model, Content: "1"}, nil
}

func (a *stubAdapter) ListModels(_ context.Context) ([]string, error) {
	return a.models, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client := llm.NewClient()
	client.Register(&stubAdapter{models: []string{"alpha", "beta"}})

	convLog := conversation.NewLog()
	summaries := conversation.NewSummaryStore()
	selector := conversation.NewSelector(convLog, summaries, conversation.DefaultVisibility(), conversation.SelectorConfig{})
	machine := phase.NewMachine(nil)
	models := orchestra.NewModelState("alpha")
	broadcaster := NewBroadcaster(10)
	t.Cleanup(broadcaster.Close)

	compactor := conversation.NewCompactor(convLog, summaries,
		conversation.SummaryBackendFunc(func(context.Context, string) (string, error) {
			return "digest", nil
		}), broadcaster.Publish, nil)

	dispatcher := orchestra.NewDispatcher(orchestra.DispatcherDeps{
		Log:       convLog,
		Selector:  selector,
		Compactor: compactor,
		Machine:   machine,
		Client:    client,
		Models:    models,
		Publish:   broadcaster.Publish,
	})

	return New(Config{Addr: "127.0.0.1:0"}, Deps{
		Dispatcher:  dispatcher,
		Log:         convLog,
		Summaries:   summaries,
		Machine:     machine,
		Models:      models,
		Client:      client,
		Broadcaster: broadcaster,
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("body: %v", body)
	}
}

func TestSubmitInputAccepted(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/input", `{"content":"I want an app"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}

	// Dispatch runs in the background; wait for the round to land.
	deadline := time.Now().Add(5 * time.Second)
	for s.log.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("accepted input never reached the log")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitInputRejectsMalformedPayloads(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		``,
		`not json`,
		`{}`,
		`{"content":""}`,
		`{"content":"hi","extra":1}`,
		`{"content":42}`,
	} {
		rec := doRequest(s, http.MethodPost, "/api/input", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status %d, want 400", body, rec.Code)
		}
	}
	if s.log.Len() != 0 {
		t.Fatal("malformed payloads must not produce turns")
	}
}

func TestPhaseStatus(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/phase", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var status PhaseStatus
	decodeJSON(t, rec, &status)
	if status.Phase != string(phase.CollectingRequirements) {
		t.Fatalf("phase: %s", status.Phase)
	}
	if status.Turns != 0 || status.Summaries != 0 {
		t.Fatalf("fresh conversation: %+v", status)
	}
}

func TestTurnsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.log.Append(conversation.NewTurn(conversation.RoleHuman, conversation.KindUserInput, "hello"))

	rec := doRequest(s, http.MethodGet, "/api/turns", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var body struct {
		Turns []conversation.Turn `json:"turns"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Turns) != 1 || body.Turns[0].Content != "hello" {
		t.Fatalf("turns: %+v", body.Turns)
	}
}

func TestModelsAndSelection(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/models", "")
	var models ModelsResponse
	decodeJSON(t, rec, &models)
	if len(models.Models) != 2 || models.Selected != "alpha" {
		t.Fatalf("models: %+v", models)
	}

	rec = doRequest(s, http.MethodPost, "/api/select_model", `{"model":"beta"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status: %d", rec.Code)
	}
	if s.models.Selected() != "beta" {
		t.Fatalf("selected: %s", s.models.Selected())
	}

	rec = doRequest(s, http.MethodPost, "/api/select_model", `{"model":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty model: status %d", rec.Code)
	}
}

func TestSaveArtifactWithoutArchive(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/artifacts", `{"path":"a.txt","content":"x"}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestCSRFRejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign origin: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("localhost origin: status %d", rec.Code)
	}
}

func TestSSEStreamsTurns(t *testing.T) {
	s := newTestServer(t)
	s.broadcaster.Publish(conversation.NewTurn(conversation.RoleHuman, conversation.KindUserInput, "hello"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.httpSrv.Handler.ServeHTTP(rec, req)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SSE handler did not return on context cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: turn") {
		t.Fatalf("missing turn event: %q", body)
	}
	if !strings.Contains(body, "hello") {
		t.Fatalf("missing turn payload: %q", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type: %s", rec.Header().Get("Content-Type"))
	}
}
