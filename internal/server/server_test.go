package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeHandler struct {
	err       error
	calls     int
	lastCode  string
	lastText  string
	lastTrace string
}

func (f *fakeHandler) HandleMessage(_ context.Context, traceID, employeeCode, text string) error {
	f.calls++
	f.lastTrace = traceID
	f.lastCode = employeeCode
	f.lastText = text
	return f.err
}

type fakeMessenger struct {
	sent []string
	to   []string
}

func (f *fakeMessenger) SendText(_ context.Context, employeeCode, text string) error {
	f.to = append(f.to, employeeCode)
	f.sent = append(f.sent, text)
	return nil
}

func newTestServer(h *fakeHandler, m *fakeMessenger) *httptest.Server {
	loc := time.FixedZone("BRT", -3*3600)
	srv := New(h, m, Options{
		Location: loc,
		Now:      func() time.Time { return time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC) },
	})
	return httptest.NewServer(srv.Mux())
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestChallengeEcho(t *testing.T) {
	h := &fakeHandler{}
	ts := newTestServer(h, &fakeMessenger{})
	defer ts.Close()

	for _, body := range []string{
		`{"seatalk_challenge":"abc123"}`,
		`{"challenge":"abc123"}`,
		`{"event":{"seatalk_challenge":"abc123"}}`,
	} {
		resp := postJSON(t, ts.URL+"/seatalk/events", body)
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()
		if out["seatalk_challenge"] != "abc123" {
			t.Errorf("body %s: expected challenge echo, got %v", body, out)
		}
	}
	if h.calls != 0 {
		t.Errorf("challenge must not dispatch, got %d calls", h.calls)
	}
}

func TestEventDispatch(t *testing.T) {
	h := &fakeHandler{}
	ts := newTestServer(h, &fakeMessenger{})
	defer ts.Close()

	body := `{"event_type":"message_from_bot_subscriber","event":{"employee_code":"emp42","message":{"tag":"text","text":{"content":"po 12345"}}}}`
	resp := postJSON(t, ts.URL+"/seatalk/events", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if h.calls != 1 || h.lastCode != "emp42" || h.lastText != "po 12345" {
		t.Errorf("unexpected dispatch: calls=%d code=%q text=%q", h.calls, h.lastCode, h.lastText)
	}
	if h.lastTrace == "" {
		t.Error("expected a trace id")
	}
}

func TestVerificationEventIgnored(t *testing.T) {
	h := &fakeHandler{}
	ts := newTestServer(h, &fakeMessenger{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/seatalk/events", `{"event_type":"event_verification","event":{"employee_code":"emp1"}}`)
	resp.Body.Close()
	if h.calls != 0 {
		t.Errorf("verification event must not dispatch, got %d", h.calls)
	}
}

func TestUndecodableBodyAnswersOK(t *testing.T) {
	h := &fakeHandler{}
	ts := newTestServer(h, &fakeMessenger{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/seatalk/events", `{{{not json`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for garbage body, got %d", resp.StatusCode)
	}
	if h.calls != 0 {
		t.Errorf("garbage body must not dispatch, got %d", h.calls)
	}
}

func TestFormEncodedChallenge(t *testing.T) {
	ts := newTestServer(&fakeHandler{}, &fakeMessenger{})
	defer ts.Close()

	resp, err := http.PostForm(ts.URL+"/seatalk/events", url.Values{"seatalk_challenge": {"form-chal"}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["seatalk_challenge"] != "form-chal" {
		t.Errorf("unexpected response %v", out)
	}
}

func TestHandlerErrorSendsApology(t *testing.T) {
	h := &fakeHandler{err: errors.New("scan blew up")}
	m := &fakeMessenger{}
	ts := newTestServer(h, m)
	defer ts.Close()

	body := `{"event_type":"message_from_bot_subscriber","event":{"employee_code":"emp7","message":{"tag":"text","text":{"content":"po 99999"}}}}`
	resp := postJSON(t, ts.URL+"/seatalk/events", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 even on handler error, got %d", resp.StatusCode)
	}
	if len(m.sent) != 1 || !strings.Contains(m.sent[0], "algo deu errado") {
		t.Errorf("expected apology, got %v", m.sent)
	}
	if m.to[0] != "emp7" {
		t.Errorf("apology addressed to %q", m.to[0])
	}
}

func TestMissingEmployeeCodeIgnored(t *testing.T) {
	h := &fakeHandler{}
	ts := newTestServer(h, &fakeMessenger{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/seatalk/events", `{"event_type":"message_from_bot_subscriber","event":{"message":{"tag":"text","text":{"content":"oi"}}}}`)
	resp.Body.Close()
	if h.calls != 0 {
		t.Errorf("expected no dispatch without employee code, got %d", h.calls)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&fakeHandler{}, &fakeMessenger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["ok"] != true {
		t.Errorf("unexpected body %v", out)
	}
	if out["time_brt"] != "2025-07-01 12:00:00" {
		t.Errorf("unexpected time_brt %v", out["time_brt"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(&fakeHandler{}, &fakeMessenger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/seatalk/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
