package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTuningPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("technique:\n  hook_elbow_min: 45\nrisk:\n  elbow_high_deg: 40\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tuning.Technique.HookElbowMin != 45 {
		t.Fatalf("hook_elbow_min = %v, want override applied", tuning.Technique.HookElbowMin)
	}
	if tuning.Risk.ElbowHighDeg != 40 {
		t.Fatalf("elbow_high_deg = %v, want override applied", tuning.Risk.ElbowHighDeg)
	}
	// Thresholds the file does not name keep their defaults.
	if tuning.Technique.PressElbowMax != 30 {
		t.Fatalf("press_elbow_max = %v, want default", tuning.Technique.PressElbowMax)
	}
	if tuning.Track.MinUsableFrames != 10 {
		t.Fatalf("min_usable_frames = %v, want default", tuning.Track.MinUsableFrames)
	}
}

func TestLoadTuningBadYAMLFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("technique: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	tuning, err := LoadTuning(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if tuning.Technique.HookElbowMin != DefaultTuning().Technique.HookElbowMin {
		t.Fatal("bad file must leave defaults intact")
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "200")
	t.Setenv("QUEUE_SIZE", "4")
	t.Setenv("PORT", "9090")
	cfg := Load()
	if cfg.WorkerCount != 64 {
		t.Fatalf("worker count = %d, want clamped to 64", cfg.WorkerCount)
	}
	if cfg.QueueSize != 8 {
		t.Fatalf("queue size = %d, want clamped to 8", cfg.QueueSize)
	}
	if cfg.HTTPPort != "9090" {
		t.Fatalf("port = %s", cfg.HTTPPort)
	}
}
