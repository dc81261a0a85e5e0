package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAttachesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("hello")
	if !strings.Contains(buf.String(), "component=app") {
		t.Fatalf("missing component attribute: %q", buf.String())
	}
}

func TestWithComponentRescopes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.WithComponent(ComponentWorker).Warn("draining")
	out := buf.String()
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("missing rescoped component: %q", out)
	}
	if strings.Contains(out, "component=app") {
		t.Fatalf("original component leaked: %q", out)
	}
}
