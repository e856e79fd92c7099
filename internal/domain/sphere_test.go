package domain

import (
	"math/rand"
	"testing"
)

func TestSphereEncodeDecodeRoundTrip(t *testing.T) {
	for _, x := range []int64{0, 1, -17, 30} {
		sol := SphereSolution{X: x}
		decoded, err := DecodeSphereSolution(sol.Encode())
		if err != nil {
			t.Fatalf("decode %q: %v", sol.Encode(), err)
		}
		if decoded.X != x {
			t.Fatalf("round trip: got %d, want %d", decoded.X, x)
		}
	}
	if _, err := DecodeSphereSolution("not-a-number"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSphereInitializeExcludesOptimum(t *testing.T) {
	sphere := NewSphere(DefaultSphereConfig())
	rng := rand.New(rand.NewSource(42))

	solutions, err := sphere.Initialize(rng)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(solutions) != 20 {
		t.Fatalf("population = %d, want 20", len(solutions))
	}
	for i, sol := range solutions {
		if sol.(SphereSolution).X == 0 {
			t.Fatalf("seed population contains the optimum at index %d", i)
		}
	}
}

func TestSphereVaryNeverOvershoots(t *testing.T) {
	sphere := NewSphere(DefaultSphereConfig())
	rng := rand.New(rand.NewSource(7))

	for _, start := range []int64{1, -1, 2, -5, 30} {
		sol := SphereSolution{X: start}
		for i := 0; i < 50; i++ {
			varied, err := sphere.Vary(sol, rng)
			if err != nil {
				t.Fatalf("Vary: %v", err)
			}
			next := varied.(SphereSolution)
			if start > 0 && (next.X < 0 || next.X > sol.X) {
				t.Fatalf("overshoot from %d to %d", sol.X, next.X)
			}
			if start < 0 && (next.X > 0 || next.X < sol.X) {
				t.Fatalf("overshoot from %d to %d", sol.X, next.X)
			}
			sol = next
			if sol.X == 0 {
				break
			}
		}
		if sol.X != 0 {
			t.Fatalf("start %d did not reach the origin", start)
		}
	}
}

func TestSphereEvaluateAndOptimum(t *testing.T) {
	sphere := NewSphere(DefaultSphereConfig())

	fit, err := sphere.Evaluate(SphereSolution{X: 0})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if fit.Coherence != 1.0 || fit.Anomaly != 0 || fit.Consistency != 1.0 {
		t.Fatalf("origin fitness = %+v", fit)
	}
	if !sphere.IsOptimal(SphereSolution{X: 0}, fit) {
		t.Fatal("origin must satisfy the success predicate")
	}
	if sphere.IsOptimal(SphereSolution{X: 1}, fit) {
		t.Fatal("x=1 must not satisfy the success predicate")
	}
}

func TestSphereNormalizeAnomalyClamps(t *testing.T) {
	sphere := NewSphere(DefaultSphereConfig())
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{2, 0.5},
		{4, 1},
		{9, 1},
		{-1, 0},
	}
	for _, tc := range cases {
		if got := sphere.NormalizeAnomaly(tc.in); got != tc.want {
			t.Fatalf("NormalizeAnomaly(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
