package analysis

import (
	"armsight/internal/geometry"
	"armsight/internal/risk"
	"armsight/internal/strength"
	"armsight/internal/technique"
)

const maxRecommendations = 5

// recommend builds training advice from the technique, confirmed risks,
// and the weakest strength metrics.
func recommend(primary technique.Technique, findings []risk.Finding, profile strength.Profile) []string {
	var recs []string
	add := func(r string) {
		for _, have := range recs {
			if have == r {
				return
			}
		}
		recs = append(recs, r)
	}

	switch primary {
	case technique.TopRoll:
		add("Wrist curls (3x15) - focus on pronation strength to prevent collapse")
		add("Static wrist holds (4x30s) - build endurance in the top position")
	case technique.Hook:
		add("Hook transition practice - improve power during technique changes")
		add("Side pressure drills - enhance lateral force application")
	case technique.Press:
		add("Tricep pressing work (close-grip press) - reinforce the low-elbow position")
		add("Cupping holds under load - keep the press angle from opening up")
	case technique.KingsMove:
		add("Posterior chain holds - support the leaned-back position safely")
		add("Shoulder stability work - protect the extended shoulder under load")
	}

	for _, f := range findings {
		if f.Severity != risk.SeverityHigh {
			continue
		}
		switch f.Joint {
		case geometry.Elbow:
			add("Elbow position drills - practice keeping the flare angle down during engagement")
		case geometry.Wrist:
			add("Wrist stability exercises - focus on preventing collapse under pronation")
		}
	}

	if m, ok := profile.Metric(strength.WristControl); ok && m.Label == "Weak" {
		add("Pronation training - strengthen the wrist pronators")
		add("Wrist curls and static holds - build wrist endurance")
	}
	if m, ok := profile.Metric(strength.BackPressure); ok && m.Label == "Weak" {
		add("Back pressure training - improve pulling strength toward your shoulder")
		add("Elbow angle drills - hold the optimal working angle under load")
	}
	if m, ok := profile.Metric(strength.EnduranceDrop); ok && m.Label == "Weak" {
		add("Endurance rounds - add 2-3 longer holds (15s+) to build stamina")
	}

	if len(recs) < 3 {
		add("Endurance rounds - add 2-3 longer holds (15s+) to build stamina")
		add("Technique refinement - practice maintaining form under pressure")
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
