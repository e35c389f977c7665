// Package risk scans joint-angle series for threshold violations and
// turns them into injury-risk findings.
package risk

import (
	"fmt"
	"sort"

	"armsight/internal/config"
	"armsight/internal/geometry"
)

// Severity is the closed set of finding levels.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is one injury-risk observation for one joint. Findings are not
// deduplicated across severities; the same joint can carry several at
// different timestamps.
type Finding struct {
	Joint       geometry.Joint `json:"joint"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   float64        `json:"timestamp"`
}

// Assess emits findings for elbow flare, wrist collapse, and shoulder
// alignment. Every tracked joint with data contributes at least one
// finding: a joint that never violates its thresholds gets a low-severity
// confirmation instead of silence.
func Assess(series geometry.ArmSeries, t config.RiskTuning) []Finding {
	var out []Finding

	out = append(out, scanJoint(series.Elbow, geometry.Elbow, t.ElbowMediumDeg, t.ElbowHighDeg,
		"Elbow Position Warning",
		"Elbow Ligament Stress",
		"elbow flare angle",
		"Moderate elbow flare; reduce the angle to limit long-term ligament load.",
		"High elbow flare increases UCL injury risk; keep the elbow closer to the body during engagement.",
	)...)

	out = append(out, scanJoint(series.Wrist, geometry.Wrist, t.WristMediumDeg, t.WristHighDeg,
		"Wrist Deviation Warning",
		"Wrist Collapse Risk",
		"backward wrist deviation",
		"Moderate backward wrist deviation; focus on keeping the knuckles toward you.",
		"Wrist is collapsing under pressure; wrist curls and static holds are recommended.",
	)...)

	out = append(out, scanShoulder(series.Shoulder, t)...)

	if len(series.Elbow) > 0 && !hasJoint(out, geometry.Elbow) {
		out = append(out, Finding{
			Joint: geometry.Elbow, Severity: SeverityLow,
			Title:       "Elbow Position",
			Description: "Elbow flare stayed below the warning threshold for the whole clip. Good form.",
			Timestamp:   series.Elbow[0].Timestamp,
		})
	}
	if len(series.Wrist) > 0 && !hasJoint(out, geometry.Wrist) {
		out = append(out, Finding{
			Joint: geometry.Wrist, Severity: SeverityLow,
			Title:       "Wrist Position",
			Description: "Wrist deviation stayed within the safe range for the whole clip. Good form.",
			Timestamp:   series.Wrist[0].Timestamp,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// scanJoint emits one finding per contiguous violation episode: medium
// episodes for samples between the two thresholds, high episodes for
// samples past the high threshold. Each finding is timestamped at the
// first violating sample of its episode.
func scanJoint(samples []geometry.AngleSample, joint geometry.Joint, mediumDeg, highDeg float64,
	mediumTitle, highTitle, angleNoun, mediumAdvice, highAdvice string) []Finding {

	var out []Finding
	emit := func(pred func(float64) bool, sev Severity, title, advice string) {
		inEpisode := false
		for _, s := range samples {
			if !pred(s.Degrees) {
				inEpisode = false
				continue
			}
			if inEpisode {
				continue
			}
			inEpisode = true
			out = append(out, Finding{
				Joint: joint, Severity: sev, Title: title,
				Description: fmt.Sprintf("%s reached %.1f° at %.2fs. %s",
					capitalize(angleNoun), s.Degrees, s.Timestamp, advice),
				Timestamp: s.Timestamp,
			})
		}
	}
	emit(func(d float64) bool { return d > mediumDeg && d <= highDeg }, SeverityMedium, mediumTitle, mediumAdvice)
	emit(func(d float64) bool { return d > highDeg }, SeverityHigh, highTitle, highAdvice)
	return out
}

func scanShoulder(samples []geometry.AngleSample, t config.RiskTuning) []Finding {
	if len(samples) == 0 {
		return nil
	}
	var out []Finding
	inEpisode := false
	for _, s := range samples {
		if s.Degrees >= t.ShoulderSafeMinDeg && s.Degrees <= t.ShoulderSafeMaxDeg {
			inEpisode = false
			continue
		}
		if inEpisode {
			continue
		}
		inEpisode = true
		out = append(out, Finding{
			Joint: geometry.Shoulder, Severity: SeverityMedium,
			Title: "Shoulder Stress",
			Description: fmt.Sprintf("Shoulder angle %.1f° at %.2fs sits outside the safe band; maintain alignment with the pulling arm.",
				s.Degrees, s.Timestamp),
			Timestamp: s.Timestamp,
		})
	}
	if len(out) == 0 {
		out = append(out, Finding{
			Joint: geometry.Shoulder, Severity: SeverityLow,
			Title:       "Shoulder Position",
			Description: "Shoulder alignment maintained throughout the clip. Good form.",
			Timestamp:   samples[0].Timestamp,
		})
	}
	return out
}

func hasJoint(fs []Finding, j geometry.Joint) bool {
	for _, f := range fs {
		if f.Joint == j {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
