package gate

import (
	"math"
	"math/rand/v2"
	"testing"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestProbabilityEndpoints(t *testing.T) {
	g := NewGate(DefaultGateConfig(), seeded(1))

	if p := g.Probability(1); math.Abs(p-1.0/15) > 1e-12 {
		t.Fatalf("expected 1/15 at hotness 1, got %f", p)
	}
	if p := g.Probability(0); math.Abs(p-1.0/1000) > 1e-12 {
		t.Fatalf("expected 1/1000 at hotness 0, got %f", p)
	}
	if p := g.Probability(0.5); math.Abs(p-1.0/507.5) > 1e-12 {
		t.Fatalf("expected 1/507.5 at hotness 0.5, got %f", p)
	}
}

func TestProbabilityClampsHotness(t *testing.T) {
	g := NewGate(DefaultGateConfig(), seeded(1))
	if g.Probability(2) != g.Probability(1) {
		t.Fatal("hotness above 1 should clamp")
	}
	if g.Probability(-1) != g.Probability(0) {
		t.Fatal("hotness below 0 should clamp")
	}
}

func TestProbabilityMonotonic(t *testing.T) {
	g := NewGate(DefaultGateConfig(), seeded(1))
	prev := 0.0
	for h := 0.0; h <= 1.0; h += 0.05 {
		p := g.Probability(h)
		if p < prev {
			t.Fatalf("probability decreased at h=%.2f: %f < %f", h, p, prev)
		}
		prev = p
	}
}

func TestFiresRateAtFullHotness(t *testing.T) {
	g := NewGate(DefaultGateConfig(), seeded(42))
	const trials = 150000
	fired := 0
	for i := 0; i < trials; i++ {
		if g.Fires(1) {
			fired++
		}
	}
	rate := float64(fired) / trials
	want := 1.0 / 15
	// ~7 standard deviations of slack.
	if math.Abs(rate-want) > 0.0045 {
		t.Fatalf("expected rate near %.4f, got %.4f", want, rate)
	}
}

func TestEvaluateDecision(t *testing.T) {
	g := NewGate(GateConfig{MinOdds: 1, OddsRange: 0}, seeded(7))
	d := g.Evaluate(0.3)
	if !d.Fired() || d.Action != ActionMutate {
		t.Fatalf("probability 1 gate should always mutate, got %+v", d)
	}
	if d.Hotness != 0.3 {
		t.Fatalf("expected hotness 0.3 recorded, got %f", d.Hotness)
	}
}

func TestNilRandIsUsable(t *testing.T) {
	g := NewGate(DefaultGateConfig(), nil)
	_ = g.Fires(0.5)
}
