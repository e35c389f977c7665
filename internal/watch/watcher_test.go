package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"armsight/internal/config"
	"armsight/internal/jobs"
	"armsight/internal/store"
)

func TestIsDump(t *testing.T) {
	cases := map[string]bool{
		"match.json":   true,
		"MATCH.JSON":   true,
		"notes.txt":    false,
		"clip.json.gz": false,
	}
	for name, want := range cases {
		if got := isDump(name); got != want {
			t.Fatalf("isDump(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcherEnqueuesNewDump(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "watch.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	cfg := config.Config{ClipsDir: filepath.Join(dir, "clips"), QueueSize: 8, EnableWatcher: true}
	if err := os.MkdirAll(cfg.ClipsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	runner := jobs.NewRunner(cfg, st, jobs.Registry{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := New(cfg, runner).Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(cfg.ClipsDir, "drop.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		list, err := st.ListJobs(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		for _, j := range list {
			if j.ClipID == "drop.json" && j.Stage == string(jobs.StageIngest) {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("no ingest job enqueued for the dropped dump")
}

func TestWatcherDisabled(t *testing.T) {
	cfg := config.Config{ClipsDir: "/nonexistent", EnableWatcher: false}
	if err := New(cfg, nil).Start(context.Background()); err != nil {
		t.Fatalf("disabled watcher must be a no-op, got %v", err)
	}
}
