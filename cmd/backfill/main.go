// Command backfill re-enqueues pipeline jobs for clip dumps that predate
// the watcher, by posting to a running service's ops endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"armsight/internal/config"
)

func main() {
	cfg := config.Load()
	baseURL := flag.String("base-url", "http://localhost:"+cfg.HTTPPort, "service base URL")
	dryRun := flag.Bool("dry-run", false, "list dumps without enqueueing")
	flag.Parse()

	entries, err := os.ReadDir(cfg.ClipsDir)
	if err != nil {
		log.Fatalf("read clips dir: %v", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	queued := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		if *dryRun {
			fmt.Println(e.Name())
			continue
		}
		if err := enqueue(client, *baseURL, e.Name()); err != nil {
			log.Printf("enqueue %s: %v", e.Name(), err)
			continue
		}
		queued++
	}
	log.Printf("backfill: queued %d clip(s)", queued)
}

func enqueue(client *http.Client, baseURL, clipID string) error {
	payload, _ := json.Marshal(map[string]any{
		"clip_id": clipID,
		"stage":   "INGEST",
		"params":  map[string]any{"backfill": true},
	})
	resp, err := client.Post(baseURL+"/ops/jobs/enqueue", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
