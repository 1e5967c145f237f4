package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf))
		r := httptest.NewRequest("GET", "/api/invoices?status=Paid", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")
		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "status_code=") {
			t.Errorf("status %d: unexpected log line %q", tt.status, out)
		}
	}
}

func TestLogErrorCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogError(context.Background(), "Store failed", errors.New("disk full"), ComponentStorage, OpCreate,
		NewFields().WithEntity("invoice", "INV-0001"))
	out := buf.String()
	for _, want := range []string{"error=\"disk full\"", "operation=create", "entity_id=INV-0001"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %q", want, out)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).With("k", "v").WithComponent(ComponentCLI)
	l.Info("hello")
	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=cli") {
		t.Errorf("expected a single cli component in %q", out)
	}
	if !strings.Contains(out, "k=v") {
		t.Errorf("attributes lost in %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Output: &buf, Component: ComponentWorker}).Info("tick", "n", 3)
	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"component":"worker"`) {
		t.Errorf("unexpected json line %q", out)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(newBufferLogger(&buf))(
		RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).InfoContext(r.Context(), "inside")
			})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(buf.String(), "request_id=req_42") {
		t.Errorf("request id missing from %q", buf.String())
	}
}

func TestToSliceIsSorted(t *testing.T) {
	got := NewFields().WithOperation("create").WithAmount(5).ToSlice()
	if len(got) != 4 || got[0] != FieldAmountCents || got[2] != FieldOperation {
		t.Errorf("ToSlice() = %v", got)
	}
}
