// Package strength aggregates force and endurance proxies from the angle
// series into a named, deterministic score profile.
package strength

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"armsight/internal/config"
	"armsight/internal/geometry"
	"armsight/internal/risk"
	"armsight/internal/technique"
)

// Metric names.
const (
	BackPressure  = "Back Pressure"
	WristControl  = "Wrist Control"
	SidePressure  = "Side Pressure"
	EnduranceDrop = "Endurance Drop"
)

// Metric is one scored proxy on the fixed 0-10 half-point scale.
type Metric struct {
	Name   string  `json:"name"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
}

// Display renders the metric in its report form, e.g. "Strong (7.5/10)".
func (m Metric) Display() string {
	return fmt.Sprintf("%s (%.1f/10)", m.Label, m.Score)
}

// Profile is the full strength/endurance picture for one participant.
type Profile struct {
	Metrics []Metric `json:"metrics"`
	Summary string   `json:"summary"`
}

// Metric returns the named metric, if present.
func (p Profile) Metric(name string) (Metric, bool) {
	for _, m := range p.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Build computes the profile. All inputs map through fixed breakpoints, so
// repeated runs on identical series yield identical profiles.
func Build(series geometry.ArmSeries, findings []risk.Finding, primary technique.Technique, t config.Tuning) Profile {
	metrics := []Metric{
		backPressure(series.Elbow, primary, t),
		wristControl(series.Wrist, findings, t.Strength),
		sidePressure(series.Shoulder, t.Strength),
		enduranceDrop(series.Elbow, t.Strength),
	}
	return Profile{Metrics: metrics, Summary: summarize(metrics)}
}

// backPressure scores how long and how firmly the elbow held the dominant
// technique's band.
func backPressure(elbow []geometry.AngleSample, primary technique.Technique, t config.Tuning) Metric {
	if len(elbow) == 0 {
		return Metric{Name: BackPressure, Label: "N/A"}
	}
	inBand := 0
	for _, s := range elbow {
		if elbowInBand(s.Degrees, primary, t.Technique) {
			inBand++
		}
	}
	frac := float64(inBand) / float64(len(elbow))
	score := snap(3 + 7*frac)
	return Metric{
		Name: BackPressure, Label: grade(score, t.Strength), Score: score,
		Detail: fmt.Sprintf("elbow held the %s band for %.0f%% of samples", primary, frac*100),
	}
}

func elbowInBand(deg float64, primary technique.Technique, t config.TechniqueTuning) bool {
	switch primary {
	case technique.Press:
		return deg <= t.PressElbowMax
	case technique.Hook:
		return deg >= t.HookElbowMin
	case technique.KingsMove:
		return deg >= t.KingsMoveElbowMin
	default:
		return deg > t.PressElbowMax && deg < t.HookElbowMin
	}
}

// wristControl scores the stability of wrist deviation; a confirmed
// collapse finding drags the score down further.
func wristControl(wrist []geometry.AngleSample, findings []risk.Finding, t config.StrengthTuning) Metric {
	if len(wrist) == 0 {
		return Metric{Name: WristControl, Label: "N/A"}
	}
	sd := seriesStdDev(wrist)
	score := 9.5 - sd/2
	for _, f := range findings {
		if f.Joint == geometry.Wrist && f.Severity == risk.SeverityHigh {
			score -= 1.5
			break
		}
	}
	score = snap(clamp(score, 1, 10))
	return Metric{
		Name: WristControl, Label: grade(score, t), Score: score,
		Detail: fmt.Sprintf("wrist deviation spread %.1f°", sd),
	}
}

// sidePressure scores lateral stability from the shoulder-angle spread.
func sidePressure(shoulder []geometry.AngleSample, t config.StrengthTuning) Metric {
	if len(shoulder) == 0 {
		return Metric{Name: SidePressure, Label: "N/A"}
	}
	sd := seriesStdDev(shoulder)
	score := snap(clamp(9-sd/3, 1, 10))
	return Metric{
		Name: SidePressure, Label: grade(score, t), Score: score,
		Detail: fmt.Sprintf("shoulder angle spread %.1f°", sd),
	}
}

// enduranceDrop compares the peak elbow angle in the first third of the
// clip against the final third as a fatigue proxy.
func enduranceDrop(elbow []geometry.AngleSample, t config.StrengthTuning) Metric {
	if len(elbow) < 3 {
		return Metric{Name: EnduranceDrop, Label: "N/A"}
	}
	start := elbow[0].Timestamp
	span := elbow[len(elbow)-1].Timestamp - start
	if span <= 0 {
		return Metric{Name: EnduranceDrop, Label: "N/A"}
	}
	var firstPeak, lastPeak float64
	for _, s := range elbow {
		rel := (s.Timestamp - start) / span
		if rel <= 1.0/3 && s.Degrees > firstPeak {
			firstPeak = s.Degrees
		}
		if rel >= 2.0/3 && s.Degrees > lastPeak {
			lastPeak = s.Degrees
		}
	}
	var dropPct float64
	if firstPeak > 0 {
		dropPct = (firstPeak - lastPeak) / firstPeak * 100
	}
	score := snap(clamp(10-dropPct/4, 1, 10))
	return Metric{
		Name: EnduranceDrop, Label: grade(score, t), Score: score,
		Detail: fmt.Sprintf("peak angle changed %.1f%% from first to final third", -dropPct),
	}
}

// summarize names the dominant weakness: the lowest-scoring metric.
func summarize(metrics []Metric) string {
	var weakest *Metric
	for i := range metrics {
		m := &metrics[i]
		if m.Label == "N/A" {
			continue
		}
		if weakest == nil || m.Score < weakest.Score {
			weakest = m
		}
	}
	if weakest == nil {
		return "Not enough samples to build a strength profile."
	}
	switch weakest.Name {
	case WristControl:
		return fmt.Sprintf("Wrist Control is the dominant weakness at %s: the wrist gave ground under pronation pressure rather than raw arm strength.", weakest.Display())
	case BackPressure:
		return fmt.Sprintf("Back Pressure is the dominant weakness at %s: the elbow drifted out of its working band instead of holding it.", weakest.Display())
	case SidePressure:
		return fmt.Sprintf("Side Pressure is the dominant weakness at %s: shoulder alignment wandered instead of applying steady lateral force.", weakest.Display())
	default:
		return fmt.Sprintf("Endurance Drop is the dominant weakness at %s: output faded noticeably between the opening and closing thirds of the match.", weakest.Display())
	}
}

func grade(score float64, t config.StrengthTuning) string {
	switch {
	case score >= t.StrongScore:
		return "Strong"
	case score >= t.ModerateScore:
		return "Moderate"
	default:
		return "Weak"
	}
}

func seriesStdDev(samples []geometry.AngleSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	vals := make([]float64, len(samples))
	for i, s := range samples {
		vals[i] = s.Degrees
	}
	return stat.StdDev(vals, nil)
}

// snap quantizes onto the half-point reporting scale.
func snap(v float64) float64 {
	return math.Round(v*2) / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
