// Package server exposes the HTTP surface of the bot: the messaging
// platform webhook and a health endpoint.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

const apologyText = "Ops, algo deu errado ao processar seu pedido 😕. Tente novamente em instantes."

// Handler processes one classified inbound message.
type Handler interface {
	HandleMessage(ctx context.Context, traceID, employeeCode, text string) error
}

// Messenger delivers the apology reply when a command handler fails.
type Messenger interface {
	SendText(ctx context.Context, employeeCode, text string) error
}

type Server struct {
	handler   Handler
	messenger Messenger
	log       *slog.Logger
	loc       *time.Location
	startedAt time.Time
	now       func() time.Time
}

type Options struct {
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

func New(h Handler, m Messenger, opts Options) *Server {
	s := &Server{
		handler:   h,
		messenger: m,
		log:       opts.Logger,
		loc:       opts.Location,
		now:       opts.Now,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.startedAt = s.now()
	return s
}

// Mux returns the routing table for the HTTP server.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/seatalk/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":         true,
		"time_brt":   s.now().In(s.loc).Format("2006-01-02 15:04:05"),
		"uptime_sec": int(s.now().Sub(s.startedAt).Seconds()),
	})
}

// handleEvents accepts whatever the platform sends. Undecodable bodies are
// treated as an empty payload rather than rejected; the platform retries
// hard on non-200 answers.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("webhook handler panic", "panic", rec)
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "ok")
		}
	}()

	payload := decodePayload(r)

	if challenge := findChallenge(payload); challenge != "" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"seatalk_challenge": challenge})
		return
	}

	s.dispatch(r.Context(), payload)

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) dispatch(ctx context.Context, payload map[string]any) {
	eventType := strings.TrimSpace(asString(payload["event_type"]))
	if eventType == "" || eventType == "event_verification" {
		return
	}
	event, _ := payload["event"].(map[string]any)
	employeeCode := strings.TrimSpace(firstNonEmpty(
		asString(event["employee_code"]),
		asString(payload["employee_code"]),
	))
	if employeeCode == "" {
		s.log.Debug("event without employee code", "event_type", eventType)
		return
	}
	text := extractText(event)

	traceID := uuid.NewString()
	log := s.log.With("trace_id", traceID, "event_type", eventType, "employee_code", employeeCode)
	log.Info("inbound message", "text_len", len(text))

	if err := s.handler.HandleMessage(ctx, traceID, employeeCode, text); err != nil {
		log.Error("command failed", "error", err)
		sentry.CaptureException(err)
		if s.messenger != nil {
			if sendErr := s.messenger.SendText(ctx, employeeCode, apologyText); sendErr != nil {
				log.Error("apology delivery failed", "error", sendErr)
			}
		}
	}
}

// decodePayload normalizes JSON, form and multipart bodies into one map.
// Anything unreadable decodes to an empty map.
func decodePayload(r *http.Request) map[string]any {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "json") || ct == "":
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
			return map[string]any{}
		}
		return payload
	case ct == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return map[string]any{}
		}
		payload := map[string]any{}
		for k := range r.PostForm {
			payload[k] = r.PostForm.Get(k)
		}
		return payload
	case strings.HasPrefix(ct, "multipart/"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return map[string]any{}
		}
		payload := map[string]any{}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				payload[k] = vs[0]
			}
		}
		return payload
	default:
		return map[string]any{}
	}
}

// findChallenge looks for the verification token at the top level and
// nested under "event".
func findChallenge(payload map[string]any) string {
	if v := strings.TrimSpace(firstNonEmpty(
		asString(payload["seatalk_challenge"]),
		asString(payload["challenge"]),
	)); v != "" {
		return v
	}
	if event, ok := payload["event"].(map[string]any); ok {
		return strings.TrimSpace(firstNonEmpty(
			asString(event["seatalk_challenge"]),
			asString(event["challenge"]),
		))
	}
	return ""
}

// extractText digs the message text out of the event's nested shapes.
func extractText(event map[string]any) string {
	if event == nil {
		return ""
	}
	if msg, ok := event["message"].(map[string]any); ok {
		if txt, ok := msg["text"].(map[string]any); ok {
			if v := strings.TrimSpace(asString(txt["content"])); v != "" {
				return v
			}
		}
		if v := strings.TrimSpace(asString(msg["plain_text"])); v != "" {
			return v
		}
		if v := strings.TrimSpace(asString(msg["content"])); v != "" {
			return v
		}
	}
	return strings.TrimSpace(asString(event["text"]))
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
