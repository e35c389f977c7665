// Package technique classifies a participant's joint-angle series into a
// named arm-wrestling technique and its transitions over time.
package technique

import (
	"fmt"
	"math"

	"armsight/internal/config"
	"armsight/internal/geometry"
)

// Technique is the closed set of recognized styles. Every match maps to
// one of these; ambiguous geometry falls back to the nearest band, never
// to an unknown value.
type Technique string

const (
	TopRoll   Technique = "Top Roll"
	Hook      Technique = "Hook"
	Press     Technique = "Press"
	KingsMove Technique = "King's Move"
)

// All lists the techniques in band-evaluation order.
var All = []Technique{Press, TopRoll, Hook, KingsMove}

// Transition marks a sustained move into a different technique band.
type Transition struct {
	Timestamp float64   `json:"timestamp"`
	Technique Technique `json:"technique"`
}

// Result is the classifier's verdict for one participant.
type Result struct {
	Primary     Technique    `json:"primary"`
	Transitions []Transition `json:"transitions"`
	Description string       `json:"description"`
}

type segment struct {
	label Technique
	start float64
	end   float64
}

func (s segment) dur() float64 { return s.end - s.start }

// Classify maps the angle series to a technique verdict. The primary
// technique is the band occupied for the plurality of sample duration;
// exact ties go to the band at the peak-pressure frame. Band crossings
// shorter than the dwell window are treated as noise.
func Classify(series geometry.ArmSeries, t config.TechniqueTuning) Result {
	if len(series.Elbow) == 0 {
		return Result{}
	}
	shoulders := geometry.ByFrame(series.Shoulder)

	labels := make([]Technique, len(series.Elbow))
	for i, s := range series.Elbow {
		var sh *float64
		if v, ok := shoulders[s.Frame]; ok {
			sh = &v
		}
		labels[i] = classifySample(s.Degrees, sh, t)
	}

	segs := mergeRuns(series.Elbow, labels, t.MinDwellSeconds)

	primary := pluralityPrimary(segs, series.Elbow, t)

	var transitions []Transition
	for i := 1; i < len(segs); i++ {
		if segs[i].label != segs[i-1].label {
			transitions = append(transitions, Transition{Timestamp: segs[i].start, Technique: segs[i].label})
		}
	}

	var total float64
	var primaryDur float64
	for _, s := range segs {
		total += s.dur()
		if s.label == primary {
			primaryDur += s.dur()
		}
	}
	share := 100.0
	if total > 0 {
		share = primaryDur / total * 100
	}
	desc := fmt.Sprintf("%s technique detected across %d samples (%.0f%% of match time, %d transition(s))",
		primary, len(series.Elbow), share, len(transitions))

	return Result{Primary: primary, Transitions: transitions, Description: desc}
}

// classifySample places one frame in a band. The direct checks follow the
// characteristic ranges; anything left over goes to the geometrically
// nearest band by angular distance to its defining thresholds.
func classifySample(elbow float64, shoulder *float64, t config.TechniqueTuning) Technique {
	if shoulder != nil && *shoulder >= t.KingsMoveShoulderMin && elbow >= t.KingsMoveElbowMin {
		return KingsMove
	}
	if elbow <= t.PressElbowMax {
		return Press
	}
	if elbow >= t.HookElbowMin {
		return Hook
	}
	if shoulder != nil && *shoulder <= t.TopRollShoulderMax {
		return TopRoll
	}
	return nearestBand(elbow, shoulder, t)
}

func nearestBand(elbow float64, shoulder *float64, t config.TechniqueTuning) Technique {
	best := Press
	bestDist := math.Inf(1)
	for _, cand := range All {
		var d float64
		switch cand {
		case Press:
			d = elbow - t.PressElbowMax
		case Hook:
			d = t.HookElbowMin - elbow
		case TopRoll:
			if shoulder == nil {
				continue
			}
			d = *shoulder - t.TopRollShoulderMax
		case KingsMove:
			if shoulder == nil {
				continue
			}
			d = (t.KingsMoveShoulderMin - *shoulder) + math.Max(0, t.KingsMoveElbowMin-elbow)
		}
		if d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best
}

// mergeRuns run-length encodes the per-sample labels and absorbs runs
// shorter than the dwell window into their predecessor, then merges
// adjacent equal-label segments.
func mergeRuns(samples []geometry.AngleSample, labels []Technique, dwell float64) []segment {
	step := meanStep(samples)
	var runs []segment
	for i, s := range samples {
		end := s.Timestamp + step
		if i+1 < len(samples) {
			end = samples[i+1].Timestamp
		}
		if n := len(runs); n > 0 && runs[n-1].label == labels[i] {
			runs[n-1].end = end
			continue
		}
		runs = append(runs, segment{label: labels[i], start: s.Timestamp, end: end})
	}

	var kept []segment
	for _, r := range runs {
		if len(kept) > 0 && r.dur() < dwell {
			kept[len(kept)-1].end = r.end
			continue
		}
		if n := len(kept); n > 0 && kept[n-1].label == r.label {
			kept[n-1].end = r.end
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// pluralityPrimary picks the band holding the largest share of total
// duration; on an exact tie, the band occupied at the peak-pressure frame
// (elbow farthest from the neutral band center) wins.
func pluralityPrimary(segs []segment, elbow []geometry.AngleSample, t config.TechniqueTuning) Technique {
	durs := map[Technique]float64{}
	for _, s := range segs {
		durs[s.label] += s.dur()
	}
	best := segs[0].label
	for _, cand := range All {
		if durs[cand] > durs[best] {
			best = cand
		}
	}
	// Exact tie between two bands: decide at peak pressure.
	for _, cand := range All {
		if cand != best && durs[cand] == durs[best] {
			return labelAt(segs, peakPressure(elbow, t))
		}
	}
	return best
}

func peakPressure(elbow []geometry.AngleSample, t config.TechniqueTuning) float64 {
	neutral := (t.PressElbowMax + t.HookElbowMin) / 2
	peakTS := elbow[0].Timestamp
	peakDist := -1.0
	for _, s := range elbow {
		if d := math.Abs(s.Degrees - neutral); d >= peakDist {
			peakDist = d
			peakTS = s.Timestamp
		}
	}
	return peakTS
}

func labelAt(segs []segment, ts float64) Technique {
	for _, s := range segs {
		if ts >= s.start && ts < s.end {
			return s.label
		}
	}
	return segs[len(segs)-1].label
}

func meanStep(samples []geometry.AngleSample) float64 {
	if len(samples) < 2 {
		return 1.0 / 30
	}
	span := samples[len(samples)-1].Timestamp - samples[0].Timestamp
	if span <= 0 {
		return 1.0 / 30
	}
	return span / float64(len(samples)-1)
}
