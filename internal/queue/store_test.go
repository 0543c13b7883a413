package queue_test

import (
	"path/filepath"
	"testing"

	"subforge/internal/queue"
)

func newStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenInDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnqueueAndGet(t *testing.T) {
	store := newStore(t)
	item, err := store.Enqueue(t.Context(), "/media/clip.mkv", "srt,vtt", "fr,de", "cinema", true)
	if err != nil {
		t.Fatal(err)
	}
	if item.JobID == "" || item.Status != queue.StatusPending {
		t.Fatalf("item = %+v", item)
	}

	fetched, err := store.Get(t.Context(), item.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched == nil || fetched.SourcePath != "/media/clip.mkv" || fetched.Formats != "srt,vtt" || !fetched.BurnIn {
		t.Fatalf("fetched = %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("created_at not persisted")
	}
}

func TestEnqueueRejectsEmptySource(t *testing.T) {
	store := newStore(t)
	if _, err := store.Enqueue(t.Context(), "  ", "", "", "", false); err == nil {
		t.Fatal("Enqueue accepted empty source")
	}
}

func TestClaimNextOrdersAndTransitions(t *testing.T) {
	store := newStore(t)
	first, err := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Enqueue(t.Context(), "/b.mkv", "srt", "", "", false); err != nil {
		t.Fatal(err)
	}

	claimed, err := store.ClaimNext(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil || claimed.JobID != first.JobID {
		t.Fatalf("claimed = %+v, want oldest pending", claimed)
	}
	if claimed.Status != queue.StatusProbing {
		t.Fatalf("claimed status = %q", claimed.Status)
	}

	if _, err := store.ClaimNext(t.Context()); err != nil {
		t.Fatal(err)
	}
	third, err := store.ClaimNext(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if third != nil {
		t.Fatalf("empty queue should claim nil, got %+v", third)
	}
}

func TestStatusTransitionsAndCompletion(t *testing.T) {
	store := newStore(t)
	item, err := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	if err != nil {
		t.Fatal(err)
	}

	for _, status := range []queue.Status{queue.StatusProbing, queue.StatusExtracting, queue.StatusTranscribing, queue.StatusFormatting, queue.StatusRendering, queue.StatusFinalizing} {
		if err := store.SetStatus(t.Context(), item.JobID, status); err != nil {
			t.Fatalf("SetStatus(%s) = %v", status, err)
		}
	}
	if err := store.SetStatus(t.Context(), item.JobID, queue.Status("bogus")); err == nil {
		t.Fatal("SetStatus accepted unknown status")
	}

	if err := store.MarkCompleted(t.Context(), item.JobID, `{"ok":true}`, "dub skipped a cue"); err != nil {
		t.Fatal(err)
	}
	fetched, err := store.Get(t.Context(), item.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != queue.StatusCompleted || fetched.ResultJSON == "" || fetched.CompletedAt.IsZero() {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestMarkFailedKeepsDiagnostics(t *testing.T) {
	store := newStore(t)
	item, err := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkFailed(t.Context(), item.JobID, "media unreadable", `{"partial":true}`, "w1"); err != nil {
		t.Fatal(err)
	}
	fetched, err := store.Get(t.Context(), item.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != queue.StatusFailed || fetched.ErrorText != "media unreadable" || fetched.ResultJSON == "" {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := newStore(t)
	a, _ := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	b, _ := store.Enqueue(t.Context(), "/b.mkv", "srt", "", "", false)
	if err := store.MarkCompleted(t.Context(), a.JobID, "{}", ""); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].JobID != b.JobID {
		t.Fatalf("List() = %+v, want newest first", all)
	}

	pending, err := store.List(t.Context(), queue.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].JobID != b.JobID {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestClearTerminalOnly(t *testing.T) {
	store := newStore(t)
	a, _ := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	if _, err := store.Enqueue(t.Context(), "/b.mkv", "srt", "", "", false); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkCompleted(t.Context(), a.JobID, "{}", ""); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Clear(t.Context(), false)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("Clear(false) removed %d, want 1", removed)
	}
	removed, err = store.Clear(t.Context(), true)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("Clear(true) removed %d, want 1", removed)
	}
}

func TestResetStuck(t *testing.T) {
	store := newStore(t)
	item, _ := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	if err := store.SetStatus(t.Context(), item.JobID, queue.StatusRendering); err != nil {
		t.Fatal(err)
	}

	reset, err := store.ResetStuck(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if reset != 1 {
		t.Fatalf("ResetStuck() = %d, want 1", reset)
	}
	fetched, _ := store.Get(t.Context(), item.JobID)
	if fetched.Status != queue.StatusPending {
		t.Fatalf("status = %q, want pending", fetched.Status)
	}
}

func TestHealthSummary(t *testing.T) {
	store := newStore(t)
	a, _ := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false)
	b, _ := store.Enqueue(t.Context(), "/b.mkv", "srt", "", "", false)
	c, _ := store.Enqueue(t.Context(), "/c.mkv", "srt", "", "", false)
	_ = store.SetStatus(t.Context(), a.JobID, queue.StatusTranscribing)
	_ = store.MarkCompleted(t.Context(), b.JobID, "{}", "")
	_ = store.MarkFailed(t.Context(), c.JobID, "boom", "", "")

	health, err := store.Health(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	want := queue.HealthSummary{Total: 3, Pending: 0, Processing: 1, Completed: 1, Failed: 1}
	if health != want {
		t.Fatalf("Health() = %+v, want %+v", health, want)
	}
}

func TestSchemaVersionPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := queue.Open(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Enqueue(t.Context(), "/a.mkv", "srt", "", "", false); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := queue.Open(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatalf("reopen = %v", err)
	}
	defer reopened.Close()
	items, err := reopened.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("reopened queue has %d items, want 1", len(items))
	}
}
