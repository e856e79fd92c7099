package domain

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"lethe/internal/model"
)

// SphereSolution is a point on the integer line; the global optimum sits at 0.
type SphereSolution struct {
	X int64
}

func (s SphereSolution) Encode() string {
	return strconv.FormatInt(s.X, 10)
}

// DecodeSphereSolution parses the canonical encoding produced by Encode.
func DecodeSphereSolution(raw string) (SphereSolution, error) {
	x, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return SphereSolution{}, fmt.Errorf("decode sphere solution %q: %w", raw, err)
	}
	return SphereSolution{X: x}, nil
}

// SphereConfig parameterizes the toy 1-D domain.
type SphereConfig struct {
	PopulationSize      int
	MaxGenerations      int
	EliminationFraction float64
	InitSpan            int64 // initial points drawn from [-InitSpan, InitSpan]
}

func DefaultSphereConfig() SphereConfig {
	return SphereConfig{
		PopulationSize:      20,
		MaxGenerations:      200,
		EliminationFraction: 0.3,
		InitSpan:            30,
	}
}

// Sphere is the reference toy domain: a single global optimum at x = 0,
// reached by contraction steps toward the origin.
type Sphere struct {
	cfg SphereConfig
}

func NewSphere(cfg SphereConfig) *Sphere {
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = 20
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = 200
	}
	if cfg.EliminationFraction <= 0 || cfg.EliminationFraction >= 1 {
		cfg.EliminationFraction = 0.3
	}
	if cfg.InitSpan <= 0 {
		cfg.InitSpan = 30
	}
	return &Sphere{cfg: cfg}
}

func (s *Sphere) Name() string {
	return "sphere"
}

func (s *Sphere) Config() Config {
	return Config{
		PopulationSize: s.cfg.PopulationSize,
		Weights: model.Weights{
			Coherence:   1.0,
			Anomaly:     -0.01,
			Consistency: 0.1,
			Paradox:     0.0,
		},
		CoherenceThreshold:  0.95,
		ParadoxThreshold:    0.95,
		EliminationFraction: s.cfg.EliminationFraction,
		MaxGenerations:      s.cfg.MaxGenerations,
		EvaluateRetries:     3,
	}
}

func (s *Sphere) Initialize(rng *rand.Rand) ([]model.Solution, error) {
	out := make([]model.Solution, 0, s.cfg.PopulationSize)
	span := 2*s.cfg.InitSpan + 1
	for len(out) < s.cfg.PopulationSize {
		x := rng.Int63n(span) - s.cfg.InitSpan
		if x == 0 {
			// Keep the optimum out of the seed population so the run has
			// to find it.
			x = s.cfg.InitSpan/2 + 1
		}
		out = append(out, SphereSolution{X: x})
	}
	return out, nil
}

// Vary contracts a point toward the origin by one or two steps, never
// overshooting past it.
func (s *Sphere) Vary(parent model.Solution, rng *rand.Rand) (model.Solution, error) {
	p, ok := parent.(SphereSolution)
	if !ok {
		return nil, fmt.Errorf("sphere: unexpected solution type %T", parent)
	}
	if p.X == 0 {
		return p, nil
	}
	step := int64(1 + rng.Intn(2))
	mag := p.X
	if mag < 0 {
		mag = -mag
	}
	if step > mag {
		step = mag
	}
	if p.X > 0 {
		return SphereSolution{X: p.X - step}, nil
	}
	return SphereSolution{X: p.X + step}, nil
}

func (s *Sphere) Evaluate(sol model.Solution) (model.FitnessVector, error) {
	p, ok := sol.(SphereSolution)
	if !ok {
		return model.FitnessVector{}, fmt.Errorf("sphere: unexpected solution type %T", sol)
	}
	dist := math.Abs(float64(p.X))
	return model.FitnessVector{
		Coherence:   1.0 / (1.0 + dist),
		Anomaly:     float64(int64(dist) % 5),
		Consistency: 1.0,
	}, nil
}

func (s *Sphere) NormalizeAnomaly(anomaly float64) float64 {
	norm := anomaly / 4.0
	if norm > 1 {
		norm = 1
	}
	if norm < 0 {
		norm = 0
	}
	return norm
}

func (s *Sphere) IsOptimal(sol model.Solution, _ model.FitnessVector) bool {
	p, ok := sol.(SphereSolution)
	return ok && p.X == 0
}
