package config

// Tuning carries every analysis threshold. Both participants of a clip are
// always assessed under the same Tuning value.
type Tuning struct {
	Track     TrackTuning     `yaml:"track"`
	Technique TechniqueTuning `yaml:"technique"`
	Risk      RiskTuning      `yaml:"risk"`
	Strength  StrengthTuning  `yaml:"strength"`
}

// TrackTuning controls the identity resolver.
type TrackTuning struct {
	// MinUsableFrames is the minimum number of assigned samples a track
	// needs before analysis is attempted.
	MinUsableFrames int `yaml:"min_usable_frames"`
	// MinCoverage is the fraction of detected frames a track must cover
	// before the split is considered starved.
	MinCoverage float64 `yaml:"min_coverage"`
	// ToleranceBand is the half-width (in normalized x) of the band around
	// the midpoint inside which assignment falls back to nearest-side
	// proximity when a track starves.
	ToleranceBand float64 `yaml:"tolerance_band"`
}

// TechniqueTuning defines the characteristic angle bands of each technique
// and the dwell filter for transitions.
type TechniqueTuning struct {
	PressElbowMax        float64 `yaml:"press_elbow_max"`
	HookElbowMin         float64 `yaml:"hook_elbow_min"`
	TopRollShoulderMax   float64 `yaml:"top_roll_shoulder_max"`
	KingsMoveShoulderMin float64 `yaml:"kings_move_shoulder_min"`
	KingsMoveElbowMin    float64 `yaml:"kings_move_elbow_min"`
	// MinDwellSeconds is how long a band must persist before a crossing
	// counts as a transition rather than single-frame noise.
	MinDwellSeconds float64 `yaml:"min_dwell_seconds"`
}

// RiskTuning defines per-joint severity thresholds in degrees.
type RiskTuning struct {
	ElbowHighDeg       float64 `yaml:"elbow_high_deg"`
	ElbowMediumDeg     float64 `yaml:"elbow_medium_deg"`
	WristHighDeg       float64 `yaml:"wrist_high_deg"`
	WristMediumDeg     float64 `yaml:"wrist_medium_deg"`
	ShoulderSafeMinDeg float64 `yaml:"shoulder_safe_min_deg"`
	ShoulderSafeMaxDeg float64 `yaml:"shoulder_safe_max_deg"`
}

// StrengthTuning defines the breakpoints mapping continuous scores onto the
// qualitative scale.
type StrengthTuning struct {
	StrongScore   float64 `yaml:"strong_score"`
	ModerateScore float64 `yaml:"moderate_score"`
}

// DefaultTuning mirrors the thresholds the product shipped with.
func DefaultTuning() Tuning {
	return Tuning{
		Track: TrackTuning{
			MinUsableFrames: 10,
			MinCoverage:     0.10,
			ToleranceBand:   0.08,
		},
		Technique: TechniqueTuning{
			PressElbowMax:        30,
			HookElbowMin:         40,
			TopRollShoulderMax:   100,
			KingsMoveShoulderMin: 120,
			KingsMoveElbowMin:    35,
			MinDwellSeconds:      0.25,
		},
		Risk: RiskTuning{
			ElbowHighDeg:       42,
			ElbowMediumDeg:     35,
			WristHighDeg:       35,
			WristMediumDeg:     25,
			ShoulderSafeMinDeg: 70,
			ShoulderSafeMaxDeg: 130,
		},
		Strength: StrengthTuning{
			StrongScore:   7.0,
			ModerateScore: 5.5,
		},
	}
}
