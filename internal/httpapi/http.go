// Package httpapi exposes the clip/analysis API and the ops surface.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"armsight/internal/config"
	"armsight/internal/events"
	"armsight/internal/jobs"
	"armsight/internal/metrics"
	"armsight/internal/store"
)

type Router struct {
	cfg    config.Config
	store  *store.Store
	runner *jobs.Runner
	bus    *events.Bus
}

func NewRouter(cfg config.Config, st *store.Store, runner *jobs.Runner, bus *events.Bus) *Router {
	return &Router{cfg: cfg, store: st, runner: runner, bus: bus}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/clips", r.clips)
	mux.HandleFunc("/api/clips/", r.clipDetail)
	mux.HandleFunc("/api/analyses", r.analyses)
	mux.HandleFunc("/api/analyses/", r.analysisDetail)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/metrics", r.metrics)
	mux.HandleFunc("/ops/jobs", r.jobs)
	mux.HandleFunc("/ops/jobs/enqueue", r.enqueue)
	mux.HandleFunc("/ops/jobs/", r.jobDetail)
	mux.HandleFunc("/ops/backfill", r.backfill)
	mux.HandleFunc("/ops/events", r.events)
}

func (r *Router) clips(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListClips(req.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

// clipDetail serves /api/clips/{id} and /api/clips/{id}/people.
func (r *Router) clipDetail(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/api/clips/")
	wantPeople := strings.HasSuffix(path, "/people")
	clipID := strings.TrimSuffix(path, "/people")
	clip, err := r.store.GetClip(req.Context(), clipID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if clip == nil {
		http.NotFound(w, req)
		return
	}
	if !wantPeople {
		respondJSON(w, clip)
		return
	}
	if clip.PeopleJSON == nil {
		http.Error(w, "participants not detected yet", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(*clip.PeopleJSON))
}

func (r *Router) analyses(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		list, err := r.store.ListAnalyses(req.Context(), req.URL.Query().Get("clip_id"), 100)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries := make([]map[string]any, 0, len(list))
		for _, a := range list {
			summaries = append(summaries, map[string]any{
				"id":          a.ID,
				"clip_id":     a.ClipID,
				"participant": a.Participant,
				"created_at":  a.CreatedAt,
			})
		}
		respondJSON(w, summaries)
	case http.MethodPost:
		var body struct {
			ClipID      string `json:"clip_id"`
			Participant string `json:"participant"`
			Count       int    `json:"count"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		clip, err := r.store.GetClip(req.Context(), body.ClipID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if clip == nil {
			http.NotFound(w, req)
			return
		}
		params := map[string]any{"participant": body.Participant}
		if body.Count > 0 {
			params["count"] = body.Count
		}
		job, err := r.runner.Enqueue(req.Context(), body.ClipID, jobs.StageAnalyze, params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSON(w, job)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// analysisDetail returns the full stored report for one analysis.
func (r *Router) analysisDetail(w http.ResponseWriter, req *http.Request) {
	id := strings.TrimPrefix(req.URL.Path, "/api/analyses/")
	a, err := r.store.GetAnalysis(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if a == nil {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(a.ReportJSON))
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	clips, _ := r.store.ListClips(ctx, 5)
	jobList, _ := r.store.ListJobs(ctx, 10)
	respondJSON(w, map[string]any{"clips": clips, "jobs": jobList, "workers": r.cfg.WorkerCount})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) metrics(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, metrics.Snapshot())
}

func (r *Router) jobs(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListJobs(req.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (r *Router) enqueue(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ClipID string      `json:"clip_id"`
		Stage  jobs.Stage  `json:"stage"`
		Params interface{} `json:"params"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, ok := body.Params.(map[string]any)
	if !ok {
		p = map[string]any{}
	}
	job, err := r.runner.Enqueue(req.Context(), body.ClipID, body.Stage, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, job)
}

// jobDetail serves /ops/jobs/{id} and /ops/jobs/{id}/logs.
func (r *Router) jobDetail(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if strings.HasSuffix(path, "/logs") {
		idStr := strings.TrimSuffix(strings.TrimPrefix(path, "/ops/jobs/"), "/logs")
		id, _ := strconv.ParseInt(idStr, 10, 64)
		lines := r.runner.Logs(id)
		if len(lines) == 0 {
			lines, _ = r.store.JobLogs(req.Context(), id)
		}
		respondJSON(w, lines)
		return
	}
	idStr := strings.TrimPrefix(path, "/ops/jobs/")
	id, _ := strconv.ParseInt(idStr, 10, 64)
	list, err := r.store.ListJobs(req.Context(), 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, j := range list {
		if j.ID == id {
			respondJSON(w, j)
			return
		}
	}
	http.NotFound(w, req)
}

// backfill re-enqueues analysis for every stored clip.
func (r *Router) backfill(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	clips, err := r.store.ListClips(req.Context(), 1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	queued := 0
	for _, c := range clips {
		if _, err := r.runner.Enqueue(req.Context(), c.ClipID, jobs.StageDetect, map[string]any{"backfill": true}); err == nil {
			queued++
		}
	}
	respondJSON(w, map[string]any{"status": "queued", "clips": queued})
}

// events streams job lifecycle events over SSE.
func (r *Router) events(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	sub := r.bus.Subscribe()
	for {
		select {
		case <-req.Context().Done():
			return
		case ev := <-sub:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
