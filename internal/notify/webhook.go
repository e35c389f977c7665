// Package notify posts completed-analysis notifications to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"armsight/internal/store"
)

var ErrNotConfigured = errors.New("webhook url not configured")

var client = &http.Client{Timeout: 10 * time.Second}

// AnalysisDone posts a small completion payload; the full report stays in
// the store for the consumer to fetch.
func AnalysisDone(ctx context.Context, url string, a *store.Analysis) error {
	if url == "" {
		return ErrNotConfigured
	}
	payload, _ := json.Marshal(map[string]any{
		"analysis_id": a.ID,
		"clip_id":     a.ClipID,
		"participant": a.Participant,
		"created_at":  a.CreatedAt,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
