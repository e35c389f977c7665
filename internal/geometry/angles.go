// Package geometry converts landmark triples into joint-angle time series.
package geometry

import (
	"math"

	"armsight/internal/pose"
	"armsight/internal/track"
)

// Joint names the tracked joints of the active arm.
type Joint string

const (
	Elbow    Joint = "elbow"
	Wrist    Joint = "wrist"
	Shoulder Joint = "shoulder"
)

// AngleSample is one joint angle at one frame, ordered by timestamp within
// a series.
type AngleSample struct {
	Frame     int     `json:"frame"`
	Timestamp float64 `json:"ts"`
	Degrees   float64 `json:"degrees"`
}

// ArmSeries holds the per-joint angle series of the active arm. Frames
// missing a required landmark are absent from the affected series; gaps
// are preserved, never interpolated.
type ArmSeries struct {
	Arm      track.Arm
	Elbow    []AngleSample
	Wrist    []AngleSample
	Shoulder []AngleSample
}

// Angle measures the angle at vertex b formed by a and c, in degrees,
// clamped to [0, 180]. Degenerate zero-length vectors yield 0.
func Angle(a, b, c pose.Point) float64 {
	ux, uy, uz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	vx, vy, vz := c.X-b.X, c.Y-b.Y, c.Z-b.Z
	nu := math.Sqrt(ux*ux + uy*uy + uz*uz)
	nv := math.Sqrt(vx*vx + vy*vy + vz*vz)
	if nu == 0 || nv == 0 {
		return 0
	}
	cos := (ux*vx + uy*vy + uz*vz) / (nu * nv)
	cos = math.Max(-1, math.Min(1, cos))
	deg := math.Acos(cos) * 180 / math.Pi
	return math.Max(0, math.Min(180, deg))
}

// verticalDrop offsets the wrist-relative reference when the hand-tip
// landmark is not detected.
const verticalDrop = 0.1

// Compute derives elbow flexion (shoulder-elbow-wrist), wrist deviation
// (elbow-wrist-hand-tip, measured as departure from a straight forearm
// line), and shoulder angle (hip-shoulder-elbow) for every assigned frame
// that carries the required landmarks.
func Compute(p track.Participant, arm track.Arm) ArmSeries {
	shoulderName, elbowName, wristName, hipName, tipName := armJoints(arm)
	out := ArmSeries{Arm: arm}
	for _, s := range p.Samples {
		ls := s.Landmarks
		sh, shOK := ls.Get(shoulderName)
		el, elOK := ls.Get(elbowName)
		wr, wrOK := ls.Get(wristName)

		if shOK && elOK && wrOK {
			out.Elbow = append(out.Elbow, AngleSample{
				Frame: s.Frame, Timestamp: s.Timestamp,
				Degrees: Angle(sh, el, wr),
			})
		}
		if elOK && wrOK {
			ref, ok := ls.Get(tipName)
			if !ok {
				// Vertical reference continues away from the elbow so a
				// plumb forearm reads as zero deviation.
				ref = pose.Point{X: wr.X, Y: wr.Y + verticalDrop, Z: wr.Z}
				if el.Y > wr.Y {
					ref.Y = wr.Y - verticalDrop
				}
			}
			out.Wrist = append(out.Wrist, AngleSample{
				Frame: s.Frame, Timestamp: s.Timestamp,
				Degrees: 180 - Angle(el, wr, ref),
			})
		}
		if hip, ok := ls.Get(hipName); ok && shOK && elOK {
			out.Shoulder = append(out.Shoulder, AngleSample{
				Frame: s.Frame, Timestamp: s.Timestamp,
				Degrees: Angle(hip, sh, el),
			})
		}
	}
	return out
}

func armJoints(arm track.Arm) (shoulder, elbow, wrist, hip, tip string) {
	if arm == track.LeftArm {
		return pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, pose.LeftHip, pose.LeftIndex
	}
	return pose.RightShoulder, pose.RightElbow, pose.RightWrist, pose.RightHip, pose.RightIndex
}

// ByFrame indexes a series for joint-aligned lookups.
func ByFrame(samples []AngleSample) map[int]float64 {
	m := make(map[int]float64, len(samples))
	for _, s := range samples {
		m[s.Frame] = s.Degrees
	}
	return m
}
