package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muqeet1001/shikshasetu/internal/cache"
	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/netmon"
	"github.com/muqeet1001/shikshasetu/internal/offline"
	"github.com/muqeet1001/shikshasetu/internal/router"
	"github.com/muqeet1001/shikshasetu/internal/session"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

type fakeCloud struct {
	result *types.Result
	err    error
}

func (f *fakeCloud) Send(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func newTestGateway(t *testing.T, cloud router.CloudService) (*Gateway, *netmon.Monitor, *session.Store) {
	t.Helper()

	cfg := config.Default()
	cfg.Log.Level = "error"

	monitor := netmon.New()
	collector := metrics.NewCollector()
	respCache := cache.New(true, 10)
	engine := offline.New(cfg.Offline.ConfidenceThreshold, rand.New(rand.NewSource(1)))
	rt := router.New(cfg, cloud, engine, monitor, collector)

	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions.db"), cfg.Session.MaxHistory)
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return New(cfg, rt, monitor, store, respCache, collector), monitor, store
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestChatWhileOffline(t *testing.T) {
	gw, _, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "never"}})

	rec := postJSON(t, gw.Handler(), "/chat", map[string]any{
		"message": "I want to be a doctor",
		"student": map[string]any{"fullName": "Aisha Khan", "classLevel": "12th", "district": "Srinagar"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeChat(t, rec)
	if resp.SessionID == "" {
		t.Error("a session id should be assigned")
	}
	if resp.Mode != string(types.ModeOfflinePrimary) {
		t.Errorf("mode = %s, want offline-primary", resp.Mode)
	}
	if resp.FallbackReason != router.ReasonNoConnection {
		t.Errorf("reason = %q, want %q", resp.FallbackReason, router.ReasonNoConnection)
	}
	if resp.Text == "" {
		t.Error("offline answer should not be empty")
	}
}

func TestChatOnlineUsesCloud(t *testing.T) {
	gw, monitor, _ := newTestGateway(t, &fakeCloud{
		result: &types.Result{Text: "cloud answer", Source: types.SourceGemini, Confidence: 0.9},
	})
	reachable := true
	monitor.HandleEvent(types.NetworkEvent{Connected: true, Transport: "wifi", InternetReachable: &reachable})

	rec := postJSON(t, gw.Handler(), "/chat", map[string]any{"message": "hello"})
	resp := decodeChat(t, rec)
	if resp.Mode != string(types.ModeCloudPrimary) {
		t.Errorf("mode = %s, want cloud-primary", resp.Mode)
	}
	if resp.Text != "cloud answer" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Source != types.SourceGemini {
		t.Errorf("source = %s", resp.Source)
	}
}

func TestChatPersistsHistory(t *testing.T) {
	gw, _, store := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})

	first := decodeChat(t, postJSON(t, gw.Handler(), "/chat", map[string]any{
		"message": "I want to be a doctor",
		"student": map[string]any{"fullName": "Aisha Khan"},
	}))

	postJSON(t, gw.Handler(), "/chat", map[string]any{
		"sessionId": first.SessionID,
		"message":   "which exam do I need?",
	})

	profile, messages, err := store.Load(first.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d stored messages, want 4", len(messages))
	}
	if messages[0].Role != types.RoleUser || messages[0].Content != "I want to be a doctor" {
		t.Errorf("first stored message = %+v", messages[0])
	}
	if messages[1].Role != types.RoleAssistant {
		t.Errorf("second stored message role = %s", messages[1].Role)
	}
	if profile == nil || profile.FullName != "Aisha Khan" {
		t.Errorf("stored profile = %+v, want Aisha Khan carried across turns", profile)
	}
}

func TestChatValidation(t *testing.T) {
	gw, _, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})

	rec := postJSON(t, gw.Handler(), "/chat", map[string]any{"sessionId": "s"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing message: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec = httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /chat: status = %d, want 405", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	gw, monitor, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})
	reachable := true
	monitor.HandleEvent(types.NetworkEvent{Connected: true, Transport: "wifi", InternetReachable: &reachable})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != types.StatusOnline {
		t.Errorf("connection status = %s, want online", resp.Status)
	}
	if resp.QueueSize != 5 {
		t.Errorf("queue size = %d, want 5", resp.QueueSize)
	}
	if !resp.Cache.Enabled {
		t.Error("cache should report enabled")
	}
}

func TestConnectivityEndpoint(t *testing.T) {
	gw, monitor, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})

	rec := postJSON(t, gw.Handler(), "/connectivity", map[string]any{
		"connected":         true,
		"transport":         "wifi",
		"internetReachable": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if monitor.Status() != types.StatusOnline {
		t.Errorf("monitor status = %s after event, want online", monitor.Status())
	}
	if !strings.Contains(rec.Body.String(), `"online"`) {
		t.Errorf("response should echo the new status: %s", rec.Body.String())
	}
}

type fakeTelephony struct{ called bool }

func (f *fakeTelephony) HandleCall(w http.ResponseWriter, r *http.Request) {
	f.called = true
	w.WriteHeader(http.StatusOK)
}

func TestTelephonyEndpoint(t *testing.T) {
	gw, _, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})

	rec := postJSON(t, gw.Handler(), "/telephony", map[string]any{})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled telephony: status = %d, want 503", rec.Code)
	}

	gw.cfg.Features.EnableTelephony = true
	rec = postJSON(t, gw.Handler(), "/telephony", map[string]any{})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no handler installed: status = %d, want 503", rec.Code)
	}

	handler := &fakeTelephony{}
	gw.SetTelephony(handler)
	rec = postJSON(t, gw.Handler(), "/telephony", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !handler.called {
		t.Error("telephony handler was not invoked")
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	gw, _, _ := newTestGateway(t, &fakeCloud{result: &types.Result{Text: "x"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	postJSON(t, gw.Handler(), "/chat", map[string]any{"message": "hello"})

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "shikshasetu_requests_total") {
		t.Error("metrics output missing request counter")
	}
}
