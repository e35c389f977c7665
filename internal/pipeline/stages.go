// Package pipeline wires the analysis stages run by the job runner:
// INGEST -> DETECT -> ANALYZE (per participant) -> RENDER + NOTIFY.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"armsight/internal/analysis"
	"armsight/internal/config"
	"armsight/internal/jobs"
	"armsight/internal/metrics"
	"armsight/internal/notify"
	"armsight/internal/pose"
	"armsight/internal/render"
	"armsight/internal/store"
	"armsight/internal/track"
)

// BuildRegistry wires deterministic stage functions.
func BuildRegistry(cfg config.Config, st *store.Store) jobs.Registry {
	an := analysis.New(cfg.Tuning)
	return jobs.Registry{
		jobs.StageIngest:  ingestStage(cfg, st),
		jobs.StageDetect:  detectStage(cfg, st, an),
		jobs.StageAnalyze: analyzeStage(cfg, st, an),
		jobs.StageRender:  renderStage(cfg, st, an),
		jobs.StageNotify:  notifyStage(cfg, st),
	}
}

// workPath is where a clip's dump lives after ingest.
func workPath(cfg config.Config, clipID string) string {
	return filepath.Join(cfg.WorkDir, clipID, clipID)
}

func ingestStage(cfg config.Config, st *store.Store) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, clipID string, params map[string]any) error {
		src := filepath.Join(cfg.ClipsDir, clipID)
		dstDir := filepath.Join(cfg.WorkDir, clipID)
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return err
		}
		dst := filepath.Join(dstDir, filepath.Base(src))
		if _, err := copyFile(src, dst); err != nil {
			return err
		}
		clip, err := pose.ParseClipFile(dst)
		if err != nil {
			msg := err.Error()
			_ = st.UpdateClipStage(ctx, clipID, string(jobs.StageIngest), jobs.StatusFailed, &msg, config.Now())
			return err
		}
		if err := st.UpdateClipStage(ctx, clipID, string(jobs.StageIngest), jobs.StatusSucceeded, nil, config.Now()); err != nil {
			return err
		}
		if err := st.SetClipMeta(ctx, clipID, len(clip.Frames), clip.Duration(), config.Now()); err != nil {
			return err
		}
		exec.Logf(paramsInt64(params, "job_id"), fmt.Sprintf("ingest parsed %d frames (%.2fs)", len(clip.Frames), clip.Duration()))
		_, err = exec.Enqueue(ctx, clipID, jobs.StageDetect, map[string]any{})
		return err
	}
}

func detectStage(cfg config.Config, st *store.Store, an *analysis.Analyzer) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, clipID string, params map[string]any) error {
		clip, err := pose.ParseClipFile(workPath(cfg, clipID))
		if err != nil {
			return err
		}
		people, err := an.DetectPeople(clip, int(paramsInt64(params, "count")))
		if err != nil {
			return failClip(ctx, st, clipID, jobs.StageDetect, err)
		}
		raw, _ := json.Marshal(people)
		if err := st.SetClipPeople(ctx, clipID, string(raw), config.Now()); err != nil {
			return err
		}
		if err := st.UpdateClipStage(ctx, clipID, string(jobs.StageDetect), jobs.StatusSucceeded, nil, config.Now()); err != nil {
			return err
		}
		exec.Logf(paramsInt64(params, "job_id"), fmt.Sprintf("detected %d participant(s)", len(people)))
		for _, p := range people {
			if _, err := exec.Enqueue(ctx, clipID, jobs.StageAnalyze, map[string]any{"participant": string(p.Identity)}); err != nil {
				return err
			}
		}
		return nil
	}
}

func analyzeStage(cfg config.Config, st *store.Store, an *analysis.Analyzer) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, clipID string, params map[string]any) error {
		clip, err := pose.ParseClipFile(workPath(cfg, clipID))
		if err != nil {
			return err
		}
		opts := analysis.Options{
			Participant:      track.Identity(paramsString(params, "participant")),
			ParticipantCount: int(paramsInt64(params, "count")),
		}
		report, err := an.Analyze(clip, opts)
		if err != nil {
			if errors.Is(err, track.ErrInsufficientPoseData) || errors.Is(err, track.ErrAmbiguousSplit) {
				metrics.IncInsufficientData()
			}
			return failClip(ctx, st, clipID, jobs.StageAnalyze, err)
		}
		raw, err := json.Marshal(report)
		if err != nil {
			return err
		}
		rec := &store.Analysis{
			ID:          report.ID,
			ClipID:      clipID,
			Participant: string(report.Participant),
			ReportJSON:  string(raw),
			CreatedAt:   report.CreatedAt,
		}
		if err := st.SaveAnalysis(ctx, rec); err != nil {
			return err
		}
		metrics.IncReports()
		if err := st.UpdateClipStage(ctx, clipID, string(jobs.StageAnalyze), jobs.StatusSucceeded, nil, config.Now()); err != nil {
			return err
		}
		exec.Logf(paramsInt64(params, "job_id"),
			fmt.Sprintf("analysis %s: %s (%s, %d findings)", report.ID, report.Technique.Primary, report.Participant, len(report.Findings)))
		next := map[string]any{"analysis_id": report.ID, "participant": string(report.Participant)}
		if _, err := exec.Enqueue(ctx, clipID, jobs.StageRender, next); err != nil {
			return err
		}
		_, err = exec.Enqueue(ctx, clipID, jobs.StageNotify, map[string]any{"analysis_id": report.ID})
		return err
	}
}

// renderStage recomputes the angle series (cheap and deterministic) and
// writes the timeline PNG next to the clip's working copy.
func renderStage(cfg config.Config, st *store.Store, an *analysis.Analyzer) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, clipID string, params map[string]any) error {
		clip, err := pose.ParseClipFile(workPath(cfg, clipID))
		if err != nil {
			return err
		}
		id := track.Identity(paramsString(params, "participant"))
		series, err := an.SeriesFor(clip, analysis.Options{Participant: id})
		if err != nil {
			return failClip(ctx, st, clipID, jobs.StageRender, err)
		}
		out := filepath.Join(cfg.WorkDir, clipID, fmt.Sprintf("%s.png", paramsString(params, "analysis_id")))
		if err := render.Timeline(series, cfg.Tuning.Risk, out); err != nil {
			return err
		}
		exec.Logf(paramsInt64(params, "job_id"), "rendered "+out)
		return st.UpdateClipStage(ctx, clipID, string(jobs.StageRender), jobs.StatusSucceeded, nil, config.Now())
	}
}

func notifyStage(cfg config.Config, st *store.Store) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, clipID string, params map[string]any) error {
		rec, err := st.GetAnalysis(ctx, paramsString(params, "analysis_id"))
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("analysis %s not found", paramsString(params, "analysis_id"))
		}
		if err := notify.AnalysisDone(ctx, cfg.WebhookURL, rec); err != nil {
			exec.Logf(paramsInt64(params, "job_id"), "notify skipped: "+err.Error())
		}
		return st.UpdateClipStage(ctx, clipID, string(jobs.StageNotify), jobs.StatusSucceeded, nil, config.Now())
	}
}

// failClip records the stage failure on the clip row before surfacing it.
func failClip(ctx context.Context, st *store.Store, clipID string, stage jobs.Stage, err error) error {
	msg := err.Error()
	_ = st.UpdateClipStage(ctx, clipID, string(stage), jobs.StatusFailed, &msg, config.Now())
	return err
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return out.ReadFrom(in)
}

func paramsInt64(m map[string]any, key string) int64 {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int64(t)
		case int64:
			return t
		case int:
			return int64(t)
		}
	}
	return 0
}

func paramsString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
