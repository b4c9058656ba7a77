package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFromContext_Default(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	var fromCtx *slog.Logger
	handler := middleware.RequestID(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/customers", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if fromCtx == nil || fromCtx == slog.Default() {
		t.Error("expected request-scoped logger in context")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request completed" || entry["path"] != "/customers" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v", entry["status"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("expected request id")
	}
}
