package domain

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"

	"lethe/internal/model"
)

// Layer operations available to the architecture-search domain.
var archOps = []string{"CONV3", "CONV5", "POOL", "DROP"}

var archParamCost = map[string]int{
	"CONV3": 50000,
	"CONV5": 100000,
	"POOL":  1000,
	"DROP":  500,
}

// ArchSolution is an ordered layer sequence for a simulated image model.
type ArchSolution struct {
	Layers []string
}

func (a ArchSolution) Encode() string {
	return strings.Join(a.Layers, "-")
}

// DecodeArchSolution parses the canonical dash-joined encoding.
func DecodeArchSolution(raw string) (ArchSolution, error) {
	if strings.TrimSpace(raw) == "" {
		return ArchSolution{}, fmt.Errorf("decode arch solution: empty encoding")
	}
	layers := strings.Split(raw, "-")
	for _, layer := range layers {
		if _, ok := archParamCost[layer]; !ok {
			return ArchSolution{}, fmt.Errorf("decode arch solution: unknown layer %q", layer)
		}
	}
	return ArchSolution{Layers: layers}, nil
}

// Params returns the simulated parameter count of the architecture.
func (a ArchSolution) Params() int {
	total := 0
	for _, layer := range a.Layers {
		cost, ok := archParamCost[layer]
		if !ok {
			cost = 10000
		}
		total += cost
	}
	return total
}

// ArchSearchConfig parameterizes the architecture-search domain.
type ArchSearchConfig struct {
	PopulationSize      int
	MaxGenerations      int
	EliminationFraction float64
	TargetParams        int
	MinDepth            int
	MaxDepth            int
	OptimalAccuracy     float64
}

func DefaultArchSearchConfig() ArchSearchConfig {
	return ArchSearchConfig{
		PopulationSize:      50,
		MaxGenerations:      100,
		EliminationFraction: 0.35,
		TargetParams:        1000000,
		MinDepth:            3,
		MaxDepth:            20,
		OptimalAccuracy:     0.95,
	}
}

// ArchSearch simulates a neural architecture search space: accuracy grows
// with convolution layers, shrinks with depth, and parameter-count deviation
// from the target budget drives the anomaly component.
type ArchSearch struct {
	cfg ArchSearchConfig
}

func NewArchSearch(cfg ArchSearchConfig) *ArchSearch {
	def := DefaultArchSearchConfig()
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = def.PopulationSize
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = def.MaxGenerations
	}
	if cfg.EliminationFraction <= 0 || cfg.EliminationFraction >= 1 {
		cfg.EliminationFraction = def.EliminationFraction
	}
	if cfg.TargetParams <= 0 {
		cfg.TargetParams = def.TargetParams
	}
	if cfg.MinDepth < 1 {
		cfg.MinDepth = def.MinDepth
	}
	if cfg.MaxDepth <= cfg.MinDepth {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.OptimalAccuracy <= 0 || cfg.OptimalAccuracy > 1 {
		cfg.OptimalAccuracy = def.OptimalAccuracy
	}
	return &ArchSearch{cfg: cfg}
}

func (a *ArchSearch) Name() string {
	return "archsearch"
}

func (a *ArchSearch) Config() Config {
	return Config{
		PopulationSize: a.cfg.PopulationSize,
		Weights: model.Weights{
			Coherence:   1.0,
			Anomaly:     -0.1,
			Consistency: 0.3,
			Paradox:     0.15,
		},
		CoherenceThreshold:  0.8,
		ParadoxThreshold:    0.6,
		EliminationFraction: a.cfg.EliminationFraction,
		MaxGenerations:      a.cfg.MaxGenerations,
		RetentionCap:        0,
		EvaluateRetries:     3,
	}
}

func (a *ArchSearch) Initialize(rng *rand.Rand) ([]model.Solution, error) {
	out := make([]model.Solution, 0, a.cfg.PopulationSize)
	for len(out) < a.cfg.PopulationSize {
		depth := a.cfg.MinDepth + rng.Intn(a.cfg.MaxDepth-a.cfg.MinDepth+1)
		layers := make([]string, depth)
		for i := range layers {
			layers[i] = archOps[rng.Intn(len(archOps))]
		}
		out = append(out, ArchSolution{Layers: layers})
	}
	return out, nil
}

// Vary applies one of swap/add/remove/replace to the parent's layer list.
func (a *ArchSearch) Vary(parent model.Solution, rng *rand.Rand) (model.Solution, error) {
	p, ok := parent.(ArchSolution)
	if !ok {
		return nil, fmt.Errorf("archsearch: unexpected solution type %T", parent)
	}
	layers := append([]string(nil), p.Layers...)
	if len(layers) == 0 {
		return nil, fmt.Errorf("archsearch: empty parent architecture")
	}

	switch rng.Intn(4) {
	case 0: // swap
		if len(layers) > 1 {
			i := rng.Intn(len(layers))
			j := rng.Intn(len(layers))
			layers[i], layers[j] = layers[j], layers[i]
		}
	case 1: // add
		if len(layers) < a.cfg.MaxDepth {
			pos := rng.Intn(len(layers) + 1)
			layers = append(layers[:pos], append([]string{archOps[rng.Intn(len(archOps))]}, layers[pos:]...)...)
		}
	case 2: // remove
		if len(layers) > a.cfg.MinDepth {
			pos := rng.Intn(len(layers))
			layers = append(layers[:pos], layers[pos+1:]...)
		}
	default: // replace
		layers[rng.Intn(len(layers))] = archOps[rng.Intn(len(archOps))]
	}
	return ArchSolution{Layers: layers}, nil
}

func (a *ArchSearch) Evaluate(sol model.Solution) (model.FitnessVector, error) {
	p, ok := sol.(ArchSolution)
	if !ok {
		return model.FitnessVector{}, fmt.Errorf("archsearch: unexpected solution type %T", sol)
	}
	if len(p.Layers) == 0 {
		return model.FitnessVector{}, fmt.Errorf("archsearch: empty architecture")
	}

	depthPenalty := 1.0 - float64(len(p.Layers))/20.0
	if depthPenalty < 0 {
		depthPenalty = 0
	}
	convBonus := 0.0
	for _, layer := range p.Layers {
		switch layer {
		case "CONV3":
			convBonus += 0.05
		case "CONV5":
			convBonus += 0.08
		}
	}
	accuracy := 0.70 + convBonus*depthPenalty + archNoise(p.Encode())
	if accuracy > 0.98 {
		accuracy = 0.98
	}
	if accuracy < 0 {
		accuracy = 0
	}

	deviation := math.Abs(float64(p.Params())-float64(a.cfg.TargetParams)) / float64(a.cfg.TargetParams)

	consistency := 1.0
	if len(p.Layers) < a.cfg.MinDepth || len(p.Layers) > a.cfg.MaxDepth {
		consistency = 0.0
	}

	return model.FitnessVector{
		Coherence:   accuracy,
		Anomaly:     deviation,
		Consistency: consistency,
	}, nil
}

func (a *ArchSearch) NormalizeAnomaly(anomaly float64) float64 {
	return 1.0 - math.Exp(-anomaly)
}

func (a *ArchSearch) IsOptimal(_ model.Solution, fit model.FitnessVector) bool {
	return fit.Coherence >= a.cfg.OptimalAccuracy && fit.Consistency >= 1.0
}

// archNoise derives a small deterministic perturbation from the canonical
// encoding so repeated evaluations of the same architecture agree exactly.
func archNoise(encoded string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(encoded))
	return (float64(h.Sum32()%4001)/4000.0 - 0.5) * 0.04
}
