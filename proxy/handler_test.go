package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"llm-gateway/middleware/ratelimit/infra"
	"llm-gateway/upstream"
)

type fakeUpstream struct {
	calls []upstream.Request
	text  string
	err   error
	panic bool
}

func (f *fakeUpstream) Complete(_ context.Context, req upstream.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.panic {
		panic("boom")
	}
	return f.text, f.err
}

type testGate struct {
	h      http.Handler
	up     *fakeUpstream
	window *infra.FixedWindow
	logs   *strings.Builder
}

func newTestGate(t *testing.T, up *fakeUpstream, mutate ...func(*Options)) *testGate {
	t.Helper()
	var logs strings.Builder
	window := infra.NewFixedWindow(infra.DefaultWindow, infra.DefaultMaxRequests)
	opts := Options{
		Limiter:    window,
		Upstream:   up,
		Credential: func() (string, bool) { return "sk-test", true },
		Logger:     log.New(&logs, "", 0),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &testGate{h: New(opts), up: up, window: window, logs: &logs}
}

func (g *testGate) do(method, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "http://example/api/anthropic", strings.NewReader(body))
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	g.h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected JSON body, got %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	if got := decode(t, w)["error"]; got != msg {
		t.Fatalf("expected error %q, got %q", msg, got)
	}
}

func TestGate_ValidateHappyPath(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"})

	w := g.do(http.MethodPost, `{"action":"validate","question":"What describes your business?","input":"Tech startup"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["result"]; got != "VALID" {
		t.Fatalf("expected result VALID, got %q", got)
	}
	if len(g.up.calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(g.up.calls))
	}
	call := g.up.calls[0]
	if call.APIKey != "sk-test" || call.Prompt.MaxTokens != 100 {
		t.Fatalf("unexpected upstream request: %+v", call)
	}
	if !strings.Contains(call.Prompt.Text, "What describes your business?") || !strings.Contains(call.Prompt.Text, "Tech startup") {
		t.Fatalf("prompt missing fields: %q", call.Prompt.Text)
	}
}

func TestGate_InsightHappyPath(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "Start with a pilot."})

	w := g.do(http.MethodPost, `{"action":"insight","assessmentData":{"score":18,"tier":"High","contextSummary":"Retail, 40 staff","hasCustomAnswers":true}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["result"]; got != "Start with a pilot." {
		t.Fatalf("unexpected result %q", got)
	}
	p := g.up.calls[0].Prompt
	if p.MaxTokens != 300 {
		t.Fatalf("expected budget 300, got %d", p.MaxTokens)
	}
	for _, want := range []string{"Note: They provided custom answers", "Score: 18", "High", "Retail, 40 staff"} {
		if !strings.Contains(p.Text, want) {
			t.Fatalf("prompt missing %q: %q", want, p.Text)
		}
	}
}

func TestGate_ValidationErrorsSkipUpstream(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", ``, MsgMissingAction},
		{"no action", `{}`, MsgMissingAction},
		{"empty action", `{"action":""}`, MsgMissingAction},
		{"validate without input", `{"action":"validate","question":"q"}`, MsgMissingFields},
		{"validate without question", `{"action":"validate","input":"i"}`, MsgMissingFields},
		{"validate with empty input", `{"action":"validate","input":"","question":"q"}`, MsgMissingFields},
		{"validate with nothing", `{"action":"validate"}`, MsgMissingFields},
		{"insight without data", `{"action":"insight"}`, MsgMissingAssess},
		{"insight with null data", `{"action":"insight","assessmentData":null}`, MsgMissingAssess},
		{"unknown action", `{"action":"delete_everything"}`, MsgInvalidAction},
		{"non-string action", `{"action":42}`, MsgInvalidAction},
		{"malformed json", `{"action":`, MsgInvalidBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGate(t, &fakeUpstream{text: "VALID"})
			w := g.do(http.MethodPost, tc.body)
			expectError(t, w, http.StatusBadRequest, tc.msg)
			if len(g.up.calls) != 0 {
				t.Fatalf("expected zero upstream calls, got %d", len(g.up.calls))
			}
		})
	}
}

func TestGate_SanitizesLongFields(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"})

	input := strings.Repeat("a", 499) + " " + strings.Repeat("b", 100)
	question := "  " + strings.Repeat("q", 300)
	body, _ := json.Marshal(map[string]string{"action": "validate", "input": input, "question": question})

	w := g.do(http.MethodPost, string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	text := g.up.calls[0].Prompt.Text
	wantInput := strings.Repeat("a", 499)
	wantQuestion := strings.Repeat("q", 198)
	if !strings.Contains(text, `"`+wantInput+`"`) {
		t.Fatalf("expected input truncated to 500 and trimmed")
	}
	if strings.Contains(text, "bbbb") {
		t.Fatalf("expected text past 500 chars to be dropped")
	}
	if !strings.Contains(text, `"`+wantQuestion+`"`) || strings.Contains(text, strings.Repeat("q", 199)) {
		t.Fatalf("expected question truncated to 200 then trimmed")
	}
}

func TestGate_UpstreamStatusPassthrough(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{err: &upstream.StatusError{Provider: "anthropic", StatusCode: 503, Body: "overloaded secret detail"}})

	w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`)

	expectError(t, w, http.StatusServiceUnavailable, MsgUpstream)
	if strings.Contains(w.Body.String(), "secret") {
		t.Fatalf("upstream body leaked to client: %s", w.Body.String())
	}
	if !strings.Contains(g.logs.String(), "503") || !strings.Contains(g.logs.String(), "overloaded secret detail") {
		t.Fatalf("expected upstream status and body in logs, got %q", g.logs.String())
	}
}

func TestGate_UpstreamTransportErrorIsInternal(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{err: errors.New("dial tcp: connection refused")})

	w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`)

	expectError(t, w, http.StatusInternalServerError, MsgInternal)
	if strings.Contains(w.Body.String(), "dial") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
}

func TestGate_PanicIsInternal(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{panic: true})

	w := g.do(http.MethodPost, `{"action":"insight","assessmentData":{}}`)

	expectError(t, w, http.StatusInternalServerError, MsgInternal)
	if !strings.Contains(g.logs.String(), "panic: boom") {
		t.Fatalf("expected panic to be logged, got %q", g.logs.String())
	}
}

func TestGate_NotConfigured(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"}, func(o *Options) {
		o.Credential = func() (string, bool) { return "", false }
	})

	w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`)

	expectError(t, w, http.StatusInternalServerError, MsgNotConfigured)
	if len(g.up.calls) != 0 {
		t.Fatalf("expected zero upstream calls")
	}
	if g.logs.Len() == 0 {
		t.Fatalf("expected configuration error to be logged")
	}
}

func TestGate_MethodGateDoesNotTouchLimiter(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"})

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions} {
		w := g.do(m, "")
		expectError(t, w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		if w.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("expected Allow: POST")
		}
	}
	if g.window.Len() != 0 {
		t.Fatalf("expected no rate-limit records, got %d", g.window.Len())
	}
	if len(g.up.calls) != 0 {
		t.Fatalf("expected zero upstream calls")
	}
}

func TestGate_RateLimitAfterMaxRequests(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"})
	body := `{"action":"validate","question":"q","input":"i"}`

	for i := 0; i < infra.DefaultMaxRequests; i++ {
		if w := g.do(http.MethodPost, body); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	w := g.do(http.MethodPost, body)
	expectError(t, w, http.StatusTooManyRequests, "Too many requests. Please try again later.")

	if len(g.up.calls) != infra.DefaultMaxRequests {
		t.Fatalf("expected %d upstream calls, got %d", infra.DefaultMaxRequests, len(g.up.calls))
	}
	if _, ok := g.window.Record("203.0.113.7"); !ok {
		t.Fatalf("expected client keyed by X-Forwarded-For")
	}
}

func TestGate_InvalidRequestsStillCountAgainstLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := infra.NewFixedWindow(time.Minute, 2, infra.WithClock(func() time.Time { return now }))
	g := newTestGate(t, &fakeUpstream{text: "VALID"}, func(o *Options) { o.Limiter = window })

	g.do(http.MethodPost, `{}`)
	g.do(http.MethodPost, `{}`)
	w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`)

	expectError(t, w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestGate_BodyTooLarge(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"}, func(o *Options) { o.MaxBodyBytes = 16 })

	w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`)

	expectError(t, w, http.StatusBadRequest, MsgInvalidBody)
}

func TestGate_NoLimiterAdmitsEverything(t *testing.T) {
	g := newTestGate(t, &fakeUpstream{text: "VALID"}, func(o *Options) { o.Limiter = nil })

	for i := 0; i < infra.DefaultMaxRequests+5; i++ {
		if w := g.do(http.MethodPost, `{"action":"validate","question":"q","input":"i"}`); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
}

func TestEnvCredential(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "")
	if _, ok := EnvCredential("TEST_LLM_KEY")(); ok {
		t.Fatalf("expected empty variable to count as missing")
	}
	t.Setenv("TEST_LLM_KEY", "k")
	if v, ok := EnvCredential("TEST_LLM_KEY")(); !ok || v != "k" {
		t.Fatalf("expected k, got %q ok=%v", v, ok)
	}
}
