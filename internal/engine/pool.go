package engine

import (
	"fmt"
	"sort"

	"lethe/internal/model"
)

// Pool is the mutable candidate population for one run. Its size is fixed at
// construction: elimination replaces candidates in place, it never shrinks or
// grows the pool.
type Pool struct {
	candidates []model.Candidate
	weights    model.Weights
}

func NewPool(solutions []model.Solution, weights model.Weights) (*Pool, error) {
	if len(solutions) == 0 {
		return nil, fmt.Errorf("pool requires at least one solution")
	}
	candidates := make([]model.Candidate, len(solutions))
	for i, sol := range solutions {
		if sol == nil {
			return nil, fmt.Errorf("nil solution at index %d", i)
		}
		candidates[i] = model.Candidate{Solution: sol, Origin: i}
	}
	return &Pool{candidates: candidates, weights: weights}, nil
}

func (p *Pool) Size() int {
	return len(p.candidates)
}

func (p *Pool) At(i int) model.Candidate {
	return p.candidates[i]
}

// SetFitness annotates the candidate at i. The scalar score is never stored:
// it is recomputed from the vector on every ranking.
func (p *Pool) SetFitness(i int, fit model.FitnessVector, degraded bool) {
	p.candidates[i].Fitness = fit
	p.candidates[i].Evaluated = true
	p.candidates[i].Degraded = degraded
}

// Replace installs a fresh, unevaluated candidate in slot i.
func (p *Pool) Replace(i int, sol model.Solution) {
	p.candidates[i] = model.Candidate{Solution: sol, Origin: i}
}

// Score computes the scalar score of the candidate at i under the pool's
// weights.
func (p *Pool) Score(i int) float64 {
	return p.candidates[i].Fitness.Score(p.weights)
}

// Unevaluated returns the indices of candidates lacking a fitness vector.
func (p *Pool) Unevaluated() []int {
	out := make([]int, 0, len(p.candidates))
	for i := range p.candidates {
		if !p.candidates[i].Evaluated {
			out = append(out, i)
		}
	}
	return out
}

// RankedAscending returns all indices ordered ascending by score, ties broken
// by lower slot index. Elimination consumes the front of this order.
func (p *Pool) RankedAscending() []int {
	order := make([]int, len(p.candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := p.Score(order[a]), p.Score(order[b])
		if sa == sb {
			return order[a] < order[b]
		}
		return sa < sb
	})
	return order
}

// Best returns the index of the top-scoring candidate, ties broken by the
// lowest slot index.
func (p *Pool) Best() int {
	best := 0
	bestScore := p.Score(0)
	for i := 1; i < len(p.candidates); i++ {
		if s := p.Score(i); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

// Summarize builds the deterministic per-generation trace entry.
func (p *Pool) Summarize(generation, exempt, eliminated int) model.GenerationSummary {
	best := p.Best()
	bestScore := p.Score(best)
	worst := bestScore
	total := 0.0
	degraded := 0
	for i := range p.candidates {
		s := p.Score(i)
		total += s
		if s < worst {
			worst = s
		}
		if p.candidates[i].Degraded {
			degraded++
		}
	}
	return model.GenerationSummary{
		Generation:    generation,
		BestScore:     bestScore,
		MeanScore:     total / float64(len(p.candidates)),
		WorstScore:    worst,
		BestSolution:  p.candidates[best].Solution.Encode(),
		ExemptCount:   exempt,
		Eliminated:    eliminated,
		DegradedCount: degraded,
	}
}
