package geometry

import (
	"math"
	"testing"

	"armsight/internal/pose"
	"armsight/internal/track"
)

func TestAngleColinearOpposite(t *testing.T) {
	a := pose.Point{X: 0, Y: 0}
	b := pose.Point{X: 1, Y: 0}
	c := pose.Point{X: 2, Y: 0}
	if got := Angle(a, b, c); math.Abs(got-180) > 1e-9 {
		t.Fatalf("angle = %v, want 180", got)
	}
}

func TestAngleCoincidentArms(t *testing.T) {
	a := pose.Point{X: 2, Y: 3}
	b := pose.Point{X: 0, Y: 0}
	if got := Angle(a, b, a); got != 0 {
		t.Fatalf("angle = %v, want 0", got)
	}
}

func TestAngleDegenerateVertex(t *testing.T) {
	p := pose.Point{X: 1, Y: 1}
	if got := Angle(p, p, pose.Point{X: 2, Y: 2}); got != 0 {
		t.Fatalf("angle = %v, want 0 for zero-length vector", got)
	}
}

func TestAngleRightAngle(t *testing.T) {
	a := pose.Point{X: 0, Y: 1}
	b := pose.Point{X: 0, Y: 0}
	c := pose.Point{X: 1, Y: 0}
	if got := Angle(a, b, c); math.Abs(got-90) > 1e-9 {
		t.Fatalf("angle = %v, want 90", got)
	}
}

func TestAngleWithinBounds(t *testing.T) {
	pts := []pose.Point{
		{X: 0.1, Y: 0.9, Z: -0.3}, {X: 0.5, Y: 0.5}, {X: 0.51, Y: 0.49, Z: 0.2},
		{X: 0, Y: 0}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 2},
	}
	for i := 0; i+2 < len(pts); i++ {
		got := Angle(pts[i], pts[i+1], pts[i+2])
		if got < 0 || got > 180 {
			t.Fatalf("angle %v out of [0,180]", got)
		}
	}
}

func TestComputeSkipsFramesMissingLandmarks(t *testing.T) {
	full := pose.LandmarkSet{
		pose.RightShoulder: {X: 0.5, Y: 0.4},
		pose.RightElbow:    {X: 0.5, Y: 0.6},
		pose.RightWrist:    {X: 0.6, Y: 0.6},
		pose.RightHip:      {X: 0.5, Y: 0.9},
	}
	noWrist := pose.LandmarkSet{
		pose.RightShoulder: {X: 0.5, Y: 0.4},
		pose.RightElbow:    {X: 0.5, Y: 0.6},
		pose.RightHip:      {X: 0.5, Y: 0.9},
	}
	p := track.Participant{Identity: track.Left, Samples: []track.Sample{
		{Frame: 0, Timestamp: 0, Landmarks: full},
		{Frame: 1, Timestamp: 0.1, Landmarks: noWrist},
		{Frame: 2, Timestamp: 0.2, Landmarks: full},
	}}
	series := Compute(p, track.RightArm)
	if len(series.Elbow) != 2 {
		t.Fatalf("elbow samples = %d, want 2 (gap preserved, not interpolated)", len(series.Elbow))
	}
	if series.Elbow[0].Frame != 0 || series.Elbow[1].Frame != 2 {
		t.Fatalf("elbow frames = %d,%d, want 0,2", series.Elbow[0].Frame, series.Elbow[1].Frame)
	}
	if len(series.Shoulder) != 3 {
		t.Fatalf("shoulder samples = %d, want 3 (wrist not required)", len(series.Shoulder))
	}
}

func TestComputeWristDeviationVerticalFallback(t *testing.T) {
	// Forearm pointing straight up with no hand-tip landmark: the
	// reference point hangs straight down from the wrist, making the
	// elbow-wrist-reference triple colinear, so deviation is 0.
	ls := pose.LandmarkSet{
		pose.RightElbow: {X: 0.5, Y: 0.6},
		pose.RightWrist: {X: 0.5, Y: 0.4},
	}
	p := track.Participant{Samples: []track.Sample{{Frame: 0, Landmarks: ls}}}
	series := Compute(p, track.RightArm)
	if len(series.Wrist) != 1 {
		t.Fatalf("wrist samples = %d, want 1", len(series.Wrist))
	}
	if got := series.Wrist[0].Degrees; math.Abs(got) > 1e-9 {
		t.Fatalf("deviation = %v, want 0", got)
	}
}
