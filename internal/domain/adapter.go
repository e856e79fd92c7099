package domain

import (
	"math/rand"

	"lethe/internal/model"
)

// Config fixes the optimization parameters a domain supplies at run
// configuration time. Thresholds and weights never change mid-run.
// Weights must score the zero fitness vector at or below every valid
// candidate: the engine assigns a zero vector to candidates that exhaust
// their evaluation retries and relies on it ranking worst.
type Config struct {
	PopulationSize      int
	Weights             model.Weights
	CoherenceThreshold  float64 // τ1 on raw coherence
	ParadoxThreshold    float64 // τ2 on normalized anomaly
	EliminationFraction float64 // e ∈ (0,1)
	MaxGenerations      int
	// RetentionCap bounds the exempt set per generation; 0 keeps the
	// retention guarantee unconditional.
	RetentionCap int
	// EvaluateRetries bounds vary() retries after an invalid candidate
	// before the worst-fitness fallback is accepted.
	EvaluateRetries int
}

// Adapter is the capability a domain plugs into the optimization core.
// Implementations must be pure functions of their inputs and the supplied
// random stream: no hidden mutable state survives between calls.
type Adapter interface {
	Name() string
	Config() Config
	// Initialize produces the seed population, PopulationSize solutions long.
	Initialize(rng *rand.Rand) ([]model.Solution, error)
	// Vary derives a new solution from a surviving parent.
	Vary(parent model.Solution, rng *rand.Rand) (model.Solution, error)
	// Evaluate scores one solution. An error marks the candidate invalid.
	Evaluate(sol model.Solution) (model.FitnessVector, error)
	// NormalizeAnomaly maps the unbounded anomaly component into [0,1].
	NormalizeAnomaly(anomaly float64) float64
	// IsOptimal reports the domain's success predicate for a solution.
	IsOptimal(sol model.Solution, fit model.FitnessVector) bool
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.PopulationSize <= 0:
		return errConfig("population size must be > 0")
	case cfg.EliminationFraction <= 0 || cfg.EliminationFraction >= 1:
		return errConfig("elimination fraction must be in (0,1)")
	case cfg.MaxGenerations <= 0:
		return errConfig("max generations must be > 0")
	case cfg.CoherenceThreshold < 0 || cfg.CoherenceThreshold > 1:
		return errConfig("coherence threshold must be in [0,1]")
	case cfg.ParadoxThreshold < 0 || cfg.ParadoxThreshold > 1:
		return errConfig("paradox threshold must be in [0,1]")
	case cfg.RetentionCap < 0:
		return errConfig("retention cap must be >= 0")
	case cfg.EvaluateRetries < 0:
		return errConfig("evaluate retries must be >= 0")
	}
	return nil
}
