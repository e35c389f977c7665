// Package analysis runs the full pipeline for one clip and assembles the
// immutable report.
package analysis

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"armsight/internal/config"
	"armsight/internal/geometry"
	"armsight/internal/pose"
	"armsight/internal/risk"
	"armsight/internal/strength"
	"armsight/internal/technique"
	"armsight/internal/track"
)

// Options select what to analyze within a clip.
type Options struct {
	// ParticipantCount overrides the clip's hint when > 0.
	ParticipantCount int
	// Participant picks which resolved track is reported. Empty selects
	// LEFT when present, else the only track.
	Participant track.Identity
}

// ParticipantInfo describes one resolved track for participant selection.
type ParticipantInfo struct {
	ID       int            `json:"id"`
	Identity track.Identity `json:"identity"`
	Label    string         `json:"label"`
	CenterX  float64        `json:"center_x"`
	Frames   int            `json:"frames"`
}

// Report is the immutable analysis result for one participant. It is
// created once per request and never mutated after assembly; persistence
// is the caller's concern.
type Report struct {
	ID              string            `json:"id"`
	ClipID          string            `json:"clip_id"`
	Participant     track.Identity    `json:"participant"`
	ActiveArm       track.Arm         `json:"active_arm"`
	Technique       technique.Result  `json:"technique"`
	Findings        []risk.Finding    `json:"findings"`
	Strength        strength.Profile  `json:"strength"`
	Recommendations []string          `json:"recommendations"`
	People          []ParticipantInfo `json:"people"`
	FramesAnalyzed  int               `json:"frames_analyzed"`
	SampleCount     int               `json:"sample_count"`
	Duration        float64           `json:"duration"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Analyzer is safe for concurrent use; each call owns its inputs and
// derived state exclusively.
type Analyzer struct {
	tuning config.Tuning
}

func New(t config.Tuning) *Analyzer {
	return &Analyzer{tuning: t}
}

// DetectPeople resolves the clip's tracks and returns them as selectable
// participants, left side first.
func (a *Analyzer) DetectPeople(clip *pose.Clip, count int) ([]ParticipantInfo, error) {
	tracks, err := a.resolve(clip, count)
	if err != nil {
		return nil, err
	}
	return peopleOf(tracks), nil
}

// Analyze runs the pipeline stages in dependency order and assembles one
// report, or returns a typed failure. No partial report is ever returned.
func (a *Analyzer) Analyze(clip *pose.Clip, opts Options) (*Report, error) {
	tracks, err := a.resolve(clip, opts.ParticipantCount)
	if err != nil {
		return nil, err
	}

	selected, err := pick(tracks, opts.Participant)
	if err != nil {
		return nil, fmt.Errorf("clip %s participant %s: %w", clip.ClipID, opts.Participant, err)
	}
	if len(selected.Samples) < a.tuning.Track.MinUsableFrames {
		return nil, fmt.Errorf("clip %s participant %s: %w", clip.ClipID, selected.Identity, track.ErrInsufficientPoseData)
	}

	arm := track.SelectActiveArm(selected)
	series := geometry.Compute(selected, arm)
	if len(series.Elbow) < a.tuning.Track.MinUsableFrames {
		return nil, fmt.Errorf("clip %s participant %s: %d elbow samples: %w",
			clip.ClipID, selected.Identity, len(series.Elbow), track.ErrInsufficientPoseData)
	}

	tech := technique.Classify(series, a.tuning.Technique)
	logSideBiasDisagreement(clip.ClipID, selected.Identity, tech.Primary)
	findings := risk.Assess(series, a.tuning.Risk)
	profile := strength.Build(series, findings, tech.Primary, a.tuning)

	return &Report{
		ID:              uuid.NewString(),
		ClipID:          clip.ClipID,
		Participant:     selected.Identity,
		ActiveArm:       arm,
		Technique:       tech,
		Findings:        findings,
		Strength:        profile,
		Recommendations: recommend(tech.Primary, findings, profile),
		People:          peopleOf(tracks),
		FramesAnalyzed:  len(clip.Frames),
		SampleCount:     len(series.Elbow),
		Duration:        clip.Duration(),
		CreatedAt:       config.Now(),
	}, nil
}

// SeriesFor resolves the clip, selects the participant and active arm,
// and returns the joint-angle series without classifying it. Used where
// only the geometry is needed, e.g. timeline rendering.
func (a *Analyzer) SeriesFor(clip *pose.Clip, opts Options) (geometry.ArmSeries, error) {
	tracks, err := a.resolve(clip, opts.ParticipantCount)
	if err != nil {
		return geometry.ArmSeries{}, err
	}
	selected, err := pick(tracks, opts.Participant)
	if err != nil {
		return geometry.ArmSeries{}, fmt.Errorf("clip %s participant %s: %w", clip.ClipID, opts.Participant, err)
	}
	return geometry.Compute(selected, track.SelectActiveArm(selected)), nil
}

func (a *Analyzer) resolve(clip *pose.Clip, countOverride int) ([]track.Participant, error) {
	hint := clip.Hint
	if countOverride > 0 {
		h := pose.ParticipantHint{Count: countOverride}
		if hint != nil {
			h.Centroids = hint.Centroids
		}
		hint = &h
	}
	resolver := track.NewResolver(a.tuning.Track)
	tracks, err := resolver.Resolve(clip.Frames, hint)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", clip.ClipID, err)
	}
	return tracks, nil
}

func pick(tracks []track.Participant, want track.Identity) (track.Participant, error) {
	if want == "" {
		for _, t := range tracks {
			if t.Identity == track.Left {
				return t, nil
			}
		}
		return tracks[0], nil
	}
	for _, t := range tracks {
		if t.Identity == want {
			return t, nil
		}
	}
	return track.Participant{}, track.ErrInsufficientPoseData
}

func peopleOf(tracks []track.Participant) []ParticipantInfo {
	people := make([]ParticipantInfo, 0, len(tracks))
	for i, t := range tracks {
		side := "Left"
		if t.Identity == track.Right {
			side = "Right"
		}
		people = append(people, ParticipantInfo{
			ID:       i,
			Identity: t.Identity,
			Label:    fmt.Sprintf("Person %d (%s)", i+1, side),
			CenterX:  t.CenterX,
			Frames:   len(t.Samples),
		})
	}
	return people
}

// The product once biased classification by table side (left leans Hook,
// right leans Top Roll). Classification here is geometry-only; the old
// positional expectation is logged when it disagrees, for follow-up.
func logSideBiasDisagreement(clipID string, id track.Identity, primary technique.Technique) {
	expected := technique.Hook
	if id == track.Right {
		expected = technique.TopRoll
	}
	if primary != expected {
		log.Printf("analysis: side-bias disagreement clip=%s participant=%s geometry=%s positional=%s",
			clipID, id, primary, expected)
	}
}
