package strength

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"armsight/internal/config"
	"armsight/internal/geometry"
	"armsight/internal/risk"
	"armsight/internal/technique"
)

func samples(vals ...float64) []geometry.AngleSample {
	out := make([]geometry.AngleSample, len(vals))
	for i, v := range vals {
		out[i] = geometry.AngleSample{Frame: i, Timestamp: float64(i) / 30, Degrees: v}
	}
	return out
}

func flat(v float64, n int) []geometry.AngleSample {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = v
	}
	return samples(vals...)
}

func TestBuildIsDeterministic(t *testing.T) {
	series := geometry.ArmSeries{
		Elbow:    samples(20, 25, 30, 45, 50, 48, 44, 30, 22, 20),
		Wrist:    samples(5, 8, 12, 30, 28, 10, 6, 5, 4, 3),
		Shoulder: samples(90, 92, 95, 110, 105, 98, 94, 91, 90, 89),
	}
	tuning := config.DefaultTuning()
	a := Build(series, nil, technique.Hook, tuning)
	b := Build(series, nil, technique.Hook, tuning)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("profiles differ between runs:\n%+v\n%+v", a, b)
	}
}

func TestBuildSnapsToHalfPoints(t *testing.T) {
	series := geometry.ArmSeries{
		Elbow:    samples(21, 27, 33, 41, 47, 39, 31, 26),
		Wrist:    samples(3, 7, 11, 9, 6, 4, 8, 5),
		Shoulder: samples(88, 97, 103, 99, 93, 90, 95, 101),
	}
	p := Build(series, nil, technique.Press, config.DefaultTuning())
	for _, m := range p.Metrics {
		if math.Mod(m.Score*2, 1) != 0 {
			t.Fatalf("%s score %.2f not on the half-point scale", m.Name, m.Score)
		}
	}
}

func TestBackPressureFullBandOccupancy(t *testing.T) {
	p := Build(geometry.ArmSeries{Elbow: flat(45, 30)}, nil, technique.Hook, config.DefaultTuning())
	m, ok := p.Metric(BackPressure)
	if !ok {
		t.Fatal("back pressure metric missing")
	}
	if m.Score != 10 || m.Label != "Strong" {
		t.Fatalf("metric = %s, want Strong (10.0/10)", m.Display())
	}
}

func TestWristControlPenalizesCollapseFinding(t *testing.T) {
	series := geometry.ArmSeries{Wrist: flat(10, 30)}
	tuning := config.DefaultTuning()
	clean := Build(series, nil, technique.Hook, tuning)
	hit := Build(series, []risk.Finding{
		{Joint: geometry.Wrist, Severity: risk.SeverityHigh, Title: "Wrist Collapse Risk"},
	}, technique.Hook, tuning)

	cm, _ := clean.Metric(WristControl)
	hm, _ := hit.Metric(WristControl)
	if cm.Score != 9.5 {
		t.Fatalf("clean score = %.1f, want 9.5 for a steady wrist", cm.Score)
	}
	if hm.Score != 8.0 {
		t.Fatalf("penalized score = %.1f, want 8.0", hm.Score)
	}
}

func TestEnduranceDropFadingClip(t *testing.T) {
	vals := make([]float64, 90)
	for i := range vals {
		if i < 30 {
			vals[i] = 50
		} else {
			vals[i] = 25
		}
	}
	p := Build(geometry.ArmSeries{Elbow: samples(vals...)}, nil, technique.Hook, config.DefaultTuning())
	m, _ := p.Metric(EnduranceDrop)
	if m.Label != "Weak" {
		t.Fatalf("metric = %s, want Weak for a 50%% fade", m.Display())
	}
	if !strings.Contains(p.Summary, "Endurance Drop") {
		t.Fatalf("summary %q does not name the weakest metric", p.Summary)
	}
}

func TestSummaryNamesWeakestMetric(t *testing.T) {
	series := geometry.ArmSeries{
		Elbow:    flat(45, 60),
		Wrist:    samples(0, 40, 0, 40, 0, 40, 0, 40, 0, 40, 0, 40),
		Shoulder: flat(95, 60),
	}
	p := Build(series, nil, technique.Hook, config.DefaultTuning())
	if !strings.Contains(p.Summary, "Wrist Control") {
		t.Fatalf("summary %q, want the wobbling wrist called out", p.Summary)
	}
}

func TestDisplayFormat(t *testing.T) {
	m := Metric{Name: BackPressure, Label: "Moderate", Score: 6.5}
	if got := m.Display(); got != "Moderate (6.5/10)" {
		t.Fatalf("display = %q", got)
	}
}

func TestBuildEmptySeries(t *testing.T) {
	p := Build(geometry.ArmSeries{}, nil, technique.Hook, config.DefaultTuning())
	if !strings.Contains(p.Summary, "Not enough samples") {
		t.Fatalf("summary = %q", p.Summary)
	}
	for _, m := range p.Metrics {
		if m.Label != "N/A" {
			t.Fatalf("%s label = %q, want N/A", m.Name, m.Label)
		}
	}
}
