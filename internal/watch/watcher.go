// Package watch monitors the clip drop directory for new landmark dumps.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"armsight/internal/config"
	"armsight/internal/jobs"
)

// Watcher enqueues an ingest job for every new dump in CLIPS_DIR.
type Watcher struct {
	cfg    config.Config
	runner *jobs.Runner
}

func New(cfg config.Config, runner *jobs.Runner) *Watcher {
	return &Watcher{cfg: cfg, runner: runner}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
					if isDump(evt.Name) {
						clipID := filepath.Base(evt.Name)
						_, _ = w.runner.Enqueue(ctx, clipID, jobs.StageIngest, map[string]any{})
					}
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.ClipsDir)
}

func isDump(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
