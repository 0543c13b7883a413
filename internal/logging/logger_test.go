package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"subforge/internal/logging"
	"subforge/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := t.TempDir() + "/sub/forge.log"
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", logging.String("k", "v"))
	// The handler buffers nothing; presence of the file is enough here.
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := services.WithJobID(context.Background(), "job-7")
	ctx = services.WithStage(ctx, "formatting")

	logger := logging.WithContext(ctx, base)
	logger.Info("stage started")

	out := buf.String()
	if !strings.Contains(out, "job_id=job-7") {
		t.Fatalf("expected job_id in output, got %q", out)
	}
	if !strings.Contains(out, "stage=formatting") {
		t.Fatalf("expected stage in output, got %q", out)
	}
}

func TestComponentLoggerNilBase(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "probe")
	logger.Info("should not panic")
}
