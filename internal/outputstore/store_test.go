package outputstore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"subforge/internal/outputstore"
)

func newStore(t *testing.T) *outputstore.Store {
	t.Helper()
	base := t.TempDir()
	store, err := outputstore.New(filepath.Join(base, "out"), filepath.Join(base, "staging"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestNewRejectsSharedDirectories(t *testing.T) {
	dir := t.TempDir()
	if _, err := outputstore.New(dir, dir, nil); err == nil {
		t.Fatal("New() accepted identical output and staging dirs")
	}
	if _, err := outputstore.New("", dir, nil); err == nil {
		t.Fatal("New() accepted empty output dir")
	}
}

func TestPublishMovesStagedFile(t *testing.T) {
	store := newStore(t)
	stage, err := store.StageDir("job-1")
	if err != nil {
		t.Fatal(err)
	}
	staged := filepath.Join(stage, "captions.srt")
	if err := os.WriteFile(staged, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	artifact, err := store.Publish(t.Context(), "job-1", staged, "captions.en.srt", "caption", "srt", "en")
	if err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if artifact.Kind != "caption" || artifact.Language != "en" || artifact.Bytes == 0 {
		t.Fatalf("artifact = %+v", artifact)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatal("staged file should be gone after publish")
	}
}

func TestPublishOverwritePolicy(t *testing.T) {
	store := newStore(t)
	stage, err := store.StageDir("job-ow")
	if err != nil {
		t.Fatal(err)
	}
	publish := func(content string) error {
		staged := filepath.Join(stage, "captions.srt")
		if err := os.WriteFile(staged, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := store.Publish(t.Context(), "job-ow", staged, "captions.en.srt", "caption", "srt", "en")
		return err
	}

	if err := publish("first"); err != nil {
		t.Fatal(err)
	}
	// Overwriting is the default.
	if err := publish("second"); err != nil {
		t.Fatalf("overwrite publish = %v", err)
	}
	target := filepath.Join(store.JobDir("job-ow"), "captions.en.srt")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Fatalf("published content = %q, want replacement", data)
	}

	store.WithOverwrite(false)
	if err := publish("third"); err == nil {
		t.Fatal("Publish() replaced an existing file with overwriting disabled")
	}
	data, err = os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Fatalf("existing output was touched: %q", data)
	}
}

func TestPublishMissingStagedFile(t *testing.T) {
	store := newStore(t)
	if _, err := store.Publish(t.Context(), "job-1", "/nonexistent", "x", "caption", "", ""); err == nil {
		t.Fatal("Publish() accepted a missing staged file")
	}
}

func TestListAndClear(t *testing.T) {
	store := newStore(t)
	stage, err := store.StageDir("job-2")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.srt", "b.mp4", "manifest.json"} {
		staged := filepath.Join(stage, name)
		if err := os.WriteFile(staged, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Publish(t.Context(), "job-2", staged, name, "", "", ""); err != nil {
			t.Fatal(err)
		}
	}

	artifacts, err := store.List("job-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("List() returned %d artifacts, want 3", len(artifacts))
	}
	kinds := map[string]bool{}
	for _, a := range artifacts {
		kinds[a.Kind] = true
	}
	for _, want := range []string{"caption", "video", "manifest"} {
		if !kinds[want] {
			t.Fatalf("missing inferred kind %q in %v", want, artifacts)
		}
	}

	if err := store.Clear("job-2"); err != nil {
		t.Fatal(err)
	}
	artifacts, err = store.List("job-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 0 {
		t.Fatalf("Clear() left %d artifacts", len(artifacts))
	}
}

func TestListUnknownJobIsEmpty(t *testing.T) {
	store := newStore(t)
	artifacts, err := store.List("never-seen")
	if err != nil || len(artifacts) != 0 {
		t.Fatalf("List(unknown) = %v, %v", artifacts, err)
	}
}

func TestDiscardStage(t *testing.T) {
	store := newStore(t)
	stage, err := store.StageDir("job-3")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stage, "partial.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.DiscardStage("job-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stage); !os.IsNotExist(err) {
		t.Fatal("staging dir survived discard")
	}
}

func TestCleanStaleStaging(t *testing.T) {
	store := newStore(t)
	stage, err := store.StageDir("old-job")
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stage, past, past); err != nil {
		t.Fatal(err)
	}
	fresh, err := store.StageDir("fresh-job")
	if err != nil {
		t.Fatal(err)
	}

	removed := store.CleanStaleStaging(24 * time.Hour)
	if len(removed) != 1 || removed[0] != stage {
		t.Fatalf("removed = %v, want [%s]", removed, stage)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh staging dir should survive")
	}
}
