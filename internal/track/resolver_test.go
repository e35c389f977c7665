package track

import (
	"errors"
	"testing"

	"armsight/internal/config"
	"armsight/internal/pose"
)

func bodyAt(centerX float64) pose.LandmarkSet {
	return pose.LandmarkSet{
		pose.LeftHip:       {X: centerX - 0.02, Y: 0.8},
		pose.RightHip:      {X: centerX + 0.02, Y: 0.8},
		pose.LeftShoulder:  {X: centerX - 0.03, Y: 0.5},
		pose.RightShoulder: {X: centerX + 0.03, Y: 0.5},
	}
}

func framesWith(n int, centers ...float64) []pose.FrameSample {
	frames := make([]pose.FrameSample, n)
	for i := range frames {
		frames[i] = pose.FrameSample{Index: i, Timestamp: float64(i) / 30}
		for _, c := range centers {
			frames[i].Detections = append(frames[i].Detections, bodyAt(c))
		}
	}
	return frames
}

func newTestResolver() *Resolver {
	return NewResolver(config.DefaultTuning().Track)
}

func TestResolveSingleParticipant(t *testing.T) {
	frames := framesWith(30, 0.45)
	tracks, err := newTestResolver().Resolve(frames, &pose.ParticipantHint{Count: 1})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(tracks))
	}
	if len(tracks[0].Samples) != 30 {
		t.Fatalf("samples = %d, want every frame", len(tracks[0].Samples))
	}
	for i, s := range tracks[0].Samples {
		if s.Frame != i {
			t.Fatalf("sample %d has frame %d, want frame order preserved", i, s.Frame)
		}
	}
}

func TestResolveInfersSingleParticipantFromNarrowCluster(t *testing.T) {
	frames := framesWith(30, 0.5)
	tracks, err := newTestResolver().Resolve(frames, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d, want 1 for a single narrow cluster", len(tracks))
	}
}

func TestResolveTwoParticipantsFullCoverage(t *testing.T) {
	frames := framesWith(40, 0.2, 0.8)
	tracks, err := newTestResolver().Resolve(frames, &pose.ParticipantHint{Count: 2, Centroids: []float64{0.2, 0.8}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}
	left, right := tracks[0], tracks[1]
	if left.Identity != Left || right.Identity != Right {
		t.Fatalf("identities = %s,%s", left.Identity, right.Identity)
	}
	if len(left.Samples) != 40 || len(right.Samples) != 40 {
		t.Fatalf("coverage = %d,%d, want 40,40", len(left.Samples), len(right.Samples))
	}
	for _, s := range left.Samples {
		if s.Landmarks.Centroid() >= 0.5 {
			t.Fatalf("cross-assignment: centroid %v on left track", s.Landmarks.Centroid())
		}
	}
	for _, s := range right.Samples {
		if s.Landmarks.Centroid() < 0.5 {
			t.Fatalf("cross-assignment: centroid %v on right track", s.Landmarks.Centroid())
		}
	}
	if left.MeanCentroid() >= right.MeanCentroid() {
		t.Fatalf("left mean %v not below right mean %v", left.MeanCentroid(), right.MeanCentroid())
	}
}

func TestResolveRelaxesStarvedSplit(t *testing.T) {
	// A bad upstream midpoint puts both bodies on its left; the strict
	// split starves the right track and the tolerance band recovers it.
	frames := framesWith(40, 0.60, 0.66)
	tracks, err := newTestResolver().Resolve(frames, &pose.ParticipantHint{Count: 2, Centroids: []float64{0.5, 0.9}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}
	if len(tracks[0].Samples) != 40 || len(tracks[1].Samples) != 40 {
		t.Fatalf("coverage = %d,%d after relaxation, want 40,40", len(tracks[0].Samples), len(tracks[1].Samples))
	}
}

func TestResolveAmbiguousSplit(t *testing.T) {
	// Two participants expected, but every detection sits on the exact
	// midpoint: no relaxation can populate both tracks.
	frames := framesWith(30, 0.5)
	_, err := newTestResolver().Resolve(frames, &pose.ParticipantHint{Count: 2})
	if !errors.Is(err, ErrAmbiguousSplit) {
		t.Fatalf("err = %v, want ErrAmbiguousSplit", err)
	}
}

func TestResolveInsufficientData(t *testing.T) {
	frames := framesWith(3, 0.4)
	_, err := newTestResolver().Resolve(frames, nil)
	if !errors.Is(err, ErrInsufficientPoseData) {
		t.Fatalf("err = %v, want ErrInsufficientPoseData", err)
	}
}
