// Package track resolves per-frame detections into stable participant
// tracks and picks the contesting arm for each.
package track

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"armsight/internal/config"
	"armsight/internal/pose"
)

// Identity labels a participant by table side, not personal identity.
type Identity string

const (
	Left  Identity = "LEFT"
	Right Identity = "RIGHT"
)

// Arm identifies the contesting limb, fixed for a whole clip.
type Arm string

const (
	LeftArm  Arm = "LEFT_ARM"
	RightArm Arm = "RIGHT_ARM"
)

var (
	ErrInsufficientPoseData = errors.New("insufficient pose data")
	ErrAmbiguousSplit       = errors.New("ambiguous participant split")
)

// Sample assigns one landmark set of one frame to a track.
type Sample struct {
	Frame     int
	Timestamp float64
	Landmarks pose.LandmarkSet
}

// Participant is a resolved track: at most one landmark set per frame,
// ordered by frame.
type Participant struct {
	Identity Identity
	// CenterX is the median centroid of the assigned samples.
	CenterX float64
	Samples []Sample
}

// MeanCentroid averages the assigned landmark-set centroids.
func (p Participant) MeanCentroid() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Samples {
		sum += s.Landmarks.Centroid()
	}
	return sum / float64(len(p.Samples))
}

// Resolver clusters detections into left/right participant tracks.
type Resolver struct {
	tuning config.TrackTuning
}

func NewResolver(t config.TrackTuning) *Resolver {
	return &Resolver{tuning: t}
}

type entry struct {
	frame    int
	ts       float64
	set      pose.LandmarkSet
	centroid float64
}

// Resolve splits the clip's detections into one or two participant tracks.
// The optional hint carries the upstream detector's participant count and
// centroid estimates; without it two participants are assumed unless every
// centroid falls in a single narrow cluster.
func (r *Resolver) Resolve(frames []pose.FrameSample, hint *pose.ParticipantHint) ([]Participant, error) {
	var entries []entry
	detectedFrames := 0
	for _, f := range frames {
		if len(f.Detections) > 0 {
			detectedFrames++
		}
		for _, set := range f.Detections {
			entries = append(entries, entry{frame: f.Index, ts: f.Timestamp, set: set, centroid: set.Centroid()})
		}
	}
	if len(entries) < r.tuning.MinUsableFrames {
		return nil, ErrInsufficientPoseData
	}

	centroids := make([]float64, len(entries))
	for i, e := range entries {
		centroids[i] = e.centroid
	}
	sorted := append([]float64(nil), centroids...)
	sort.Float64s(sorted)

	count := 2
	switch {
	case hint != nil && hint.Count == 1:
		count = 1
	case hint == nil && sorted[len(sorted)-1]-sorted[0] < 2*r.tuning.ToleranceBand:
		// All detections sit in one narrow cluster: one participant.
		count = 1
	}

	if count == 1 {
		return []Participant{r.singleTrack(entries, sorted)}, nil
	}

	midpoint := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if hint != nil && len(hint.Centroids) == 2 {
		midpoint = (hint.Centroids[0] + hint.Centroids[1]) / 2
	}

	left, right := r.assign(entries, midpoint, false, sorted)
	if r.coverage(left, detectedFrames) < r.tuning.MinCoverage ||
		r.coverage(right, detectedFrames) < r.tuning.MinCoverage {
		left, right = r.assign(entries, midpoint, true, sorted)
		if r.coverage(left, detectedFrames) < r.tuning.MinCoverage ||
			r.coverage(right, detectedFrames) < r.tuning.MinCoverage {
			return nil, ErrAmbiguousSplit
		}
	}

	return []Participant{
		buildParticipant(Left, left),
		buildParticipant(Right, right),
	}, nil
}

func (r *Resolver) singleTrack(entries []entry, sorted []float64) Participant {
	// One set per frame, in frame order.
	byFrame := map[int]entry{}
	for _, e := range entries {
		if _, ok := byFrame[e.frame]; !ok {
			byFrame[e.frame] = e
		}
	}
	kept := make([]entry, 0, len(byFrame))
	for _, e := range byFrame {
		kept = append(kept, e)
	}
	id := Left
	anchor := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if anchor >= 0.5 {
		id = Right
	}
	return buildParticipant(id, kept)
}

// assign partitions entries around the midpoint. In relaxed mode, entries
// inside the tolerance band go to the nearest cluster anchor instead of
// the strict side, so a starving track can recover samples.
func (r *Resolver) assign(entries []entry, midpoint float64, relaxed bool, sorted []float64) (left, right []entry) {
	lowerAnchor, upperAnchor := halfSplitAnchors(sorted)
	for _, e := range entries {
		side := Left
		if e.centroid >= midpoint {
			side = Right
		}
		if relaxed && math.Abs(e.centroid-midpoint) <= r.tuning.ToleranceBand {
			if math.Abs(e.centroid-upperAnchor) < math.Abs(e.centroid-lowerAnchor) {
				side = Right
			} else {
				side = Left
			}
		}
		if side == Left {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	left = dedupeByFrame(left, lowerAnchor)
	right = dedupeByFrame(right, upperAnchor)
	return left, right
}

// halfSplitAnchors estimates the two cluster centers as the medians of the
// lower and upper halves of the sorted centroids.
func halfSplitAnchors(sorted []float64) (lower, upper float64) {
	mid := len(sorted) / 2
	lowerHalf := sorted[:mid]
	upperHalf := sorted[mid:]
	if len(lowerHalf) == 0 {
		lowerHalf = sorted[:1]
	}
	if len(upperHalf) == 0 {
		upperHalf = sorted[len(sorted)-1:]
	}
	return stat.Quantile(0.5, stat.Empirical, lowerHalf, nil),
		stat.Quantile(0.5, stat.Empirical, upperHalf, nil)
}

// dedupeByFrame keeps, per frame, the entry nearest the side anchor so a
// frame never contributes two landmark sets to one track.
func dedupeByFrame(entries []entry, anchor float64) []entry {
	best := map[int]entry{}
	for _, e := range entries {
		cur, ok := best[e.frame]
		if !ok || math.Abs(e.centroid-anchor) < math.Abs(cur.centroid-anchor) {
			best[e.frame] = e
		}
	}
	out := make([]entry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	return out
}

func (r *Resolver) coverage(entries []entry, detectedFrames int) float64 {
	if detectedFrames == 0 {
		return 0
	}
	return float64(len(entries)) / float64(detectedFrames)
}

func buildParticipant(id Identity, entries []entry) Participant {
	sort.Slice(entries, func(i, j int) bool { return entries[i].frame < entries[j].frame })
	p := Participant{Identity: id, Samples: make([]Sample, 0, len(entries))}
	cs := make([]float64, 0, len(entries))
	for _, e := range entries {
		p.Samples = append(p.Samples, Sample{Frame: e.frame, Timestamp: e.ts, Landmarks: e.set})
		cs = append(cs, e.centroid)
	}
	if len(cs) > 0 {
		sort.Float64s(cs)
		p.CenterX = stat.Quantile(0.5, stat.Empirical, cs, nil)
	}
	return p
}
