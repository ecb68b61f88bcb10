package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagebot/internal/format"
	"github.com/starford/pagebot/internal/interpreter"
	"github.com/starford/pagebot/internal/pageservice"
	"github.com/starford/pagebot/internal/state"
	"github.com/starford/pagebot/internal/storage"
	"github.com/starford/pagebot/internal/testutil"
)

type testEnv struct {
	svc     *pageservice.Service
	backend *storage.Memory
	router  http.Handler
}

// newTestEnv wires a memory-backed service with history into a router.
func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	backend, store := testutil.MemoryStore(t)
	db := testutil.TestDB(t)
	svc := pageservice.New(interpreter.NewPattern(false), store,
		pageservice.WithRecorder(db),
		pageservice.WithLogger(testutil.Logger()),
	)
	return &testEnv{svc: svc, backend: backend, router: NewRouter(svc, opts)}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeUpdate(t *testing.T, w *httptest.ResponseRecorder) UpdateResponse {
	t.Helper()
	var resp UpdateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestGetStateReturnsDefault(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var doc state.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	want := state.Default()
	if doc.LogoURL != want.LogoURL || doc.TextContent != want.TextContent || len(doc.Buttons) != 1 {
		t.Errorf("doc = %+v, want default", doc)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestGetStateNotModified(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/state", nil))
	etag := w.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("If-None-Match", etag)
	w = env.do(req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}

	env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "New"`}))
	w = env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status after change = %d, want 200", w.Code)
	}
}

func TestUpdateJSON(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: "Add a link to google.com in red color"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeUpdate(t, w)
	if !resp.Success || resp.Action != "addButton" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Message != "Added a red button linking to google.com" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.State.Buttons) != 2 || resp.State.Buttons[1].Color != "#e74c3c" {
		t.Errorf("buttons = %+v", resp.State.Buttons)
	}
}

func TestUpdateForm(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(formRequest("/update", url.Values{"instruction": {`Update text to "Welcome to my website"`}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeUpdate(t, w)
	if resp.State.TextContent != "<p>Welcome to my website</p>" {
		t.Errorf("textContent = %q", resp.State.TextContent)
	}
	if resp.Message != "Text content updated" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestUpdateMissingInstruction(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, req := range []*http.Request{
		jsonRequest(t, http.MethodPost, "/update", map[string]string{}),
		jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: "   "}),
		formRequest("/update", url.Values{}),
	} {
		w := env.do(req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		var body map[string]string
		_ = json.NewDecoder(w.Body).Decode(&body)
		if body["error"] != "No instruction provided" {
			t.Errorf("error = %q", body["error"])
		}
	}
	if env.backend.Saves() != 0 {
		t.Errorf("saves = %d, want 0", env.backend.Saves())
	}
}

func TestUpdateInvalidJSON(t *testing.T) {
	env := newTestEnv(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateUnrecognized(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: "make it sparkle"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeUpdate(t, w)
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Action != "unknown" || resp.Message != format.HelpMessage {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpdatePersistFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.backend.FailWith(errors.New("disk full"))

	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: "Change logo to https://example.com/logo.png"}))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if env.svc.State().LogoURL != state.DefaultLogoURL {
		t.Error("logo changed despite persist failure")
	}
}

func TestAuthTokenMode(t *testing.T) {
	env := newTestEnv(t, Options{AuthEnabled: true, Token: "secret"})

	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "x"`}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	req := jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "x"`})
	req.Header.Set("Authorization", "Bearer wrong")
	if w := env.do(req); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", w.Code)
	}

	req = jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "x"`})
	req.Header.Set("Authorization", "Bearer secret")
	if w := env.do(req); w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}

	if w := env.do(httptest.NewRequest(http.MethodGet, "/history", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("history: status = %d, want 401", w.Code)
	}

	// State and webhook stay open.
	if w := env.do(httptest.NewRequest(http.MethodGet, "/state", nil)); w.Code != http.StatusOK {
		t.Fatalf("state: status = %d", w.Code)
	}
	if w := env.do(formRequest("/whatsapp-webhook", url.Values{"Body": {"hi"}})); w.Code != http.StatusOK {
		t.Fatalf("webhook: status = %d", w.Code)
	}
}

func TestWebhookTwiMLReply(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(formRequest("/whatsapp-webhook", url.Values{
		"Body": {`Update text to "Hello from WhatsApp"`},
		"From": {"whatsapp:+15550001111"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("content-type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<Message>✅ Text content updated</Message>") {
		t.Errorf("body = %s", w.Body.String())
	}
	if env.svc.State().TextContent != "<p>Hello from WhatsApp</p>" {
		t.Errorf("textContent = %q", env.svc.State().TextContent)
	}
}

func TestWebhookUnrecognizedReply(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(formRequest("/whatsapp-webhook", url.Values{"Body": {"what is this"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Message>❌ I couldn&#39;t understand that instruction.") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestWebhookPersistFailureStillAcknowledged(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.backend.FailWith(errors.New("disk full"))

	w := env.do(formRequest("/whatsapp-webhook", url.Values{"Body": {"Update banner to https://example.com/b.png"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "❌ Sorry, I couldn&#39;t process that instruction") {
		t.Errorf("body = %s", w.Body.String())
	}
}

type chanSender struct {
	sent chan [2]string
}

func (s *chanSender) Send(_ context.Context, to, body string) error {
	s.sent <- [2]string{to, body}
	return nil
}

func TestWebhookAPIReplyMode(t *testing.T) {
	sender := &chanSender{sent: make(chan [2]string, 1)}
	env := newTestEnv(t, Options{ReplyMode: ReplyModeAPI, Sender: sender})

	w := env.do(formRequest("/whatsapp-webhook", url.Values{
		"Body": {"Change banner to www.example.com/banner.jpg"},
		"From": {"whatsapp:+15550001111"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasSuffix(w.Body.String(), "<Response></Response>") {
		t.Errorf("body = %s, want empty acknowledgement", w.Body.String())
	}

	select {
	case got := <-sender.sent:
		if got[0] != "whatsapp:+15550001111" || got[1] != "✅ Banner updated" {
			t.Errorf("sent = %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not sent")
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: RateLimit{RPS: 0.001, Burst: 1}})

	if w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "a"`})); w.Code != http.StatusOK {
		t.Fatalf("first: status = %d", w.Code)
	}
	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "b"`}))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status = %d, want 429", w.Code)
	}
	if env.svc.State().TextContent != "<p>a</p>" {
		t.Errorf("rejected request mutated state: %q", env.svc.State().TextContent)
	}
	// Reads are not limited.
	if w := env.do(httptest.NewRequest(http.MethodGet, "/state", nil)); w.Code != http.StatusOK {
		t.Fatalf("state: status = %d", w.Code)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "one"`}))
	env.do(formRequest("/whatsapp-webhook", url.Values{"Body": {"nonsense"}}))

	w := env.do(httptest.NewRequest(http.MethodGet, "/history?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(resp.Entries))
	}
	if resp.Entries[0].Source != "whatsapp" || resp.Entries[0].Instruction != "nonsense" {
		t.Errorf("entry = %+v", resp.Entries[0])
	}
}

func TestHistoryDisabled(t *testing.T) {
	_, store := testutil.MemoryStore(t)
	svc := pageservice.New(interpreter.NewPattern(false), store, pageservice.WithLogger(testutil.Logger()))
	router := NewRouter(svc, Options{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	h := CORSMiddleware([]string{"https://site.example"})(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://site.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://site.example" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://site.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	CORSMiddleware([]string{"*"})(ok).ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}

func TestRateLimitIsSharedByInstructionEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: RateLimit{RPS: 0.001, Burst: 1}})

	if w := env.do(formRequest("/whatsapp-webhook", url.Values{"Body": {`Update text to "a"`}})); w.Code != http.StatusOK {
		t.Fatalf("webhook: status = %d", w.Code)
	}
	w := env.do(jsonRequest(t, http.MethodPost, "/update", UpdateRequest{Instruction: `Update text to "b"`}))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("update: status = %d, want 429", w.Code)
	}
}

func TestStaticHandlerServesIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>page</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, Options{})

	r := chi.NewRouter()
	r.Mount("/api", env.router)
	r.Handle("/*", StaticHandler(dir))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h1>page</h1>") {
		t.Fatalf("index: status = %d body = %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "textContent") {
		t.Fatalf("api: status = %d body = %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d", w.Code)
	}
}
