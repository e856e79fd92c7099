package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"lethe/internal/domain"
	"lethe/internal/model"
)

// State is the optimizer's lifecycle position.
type State string

const (
	StateInit            State = "init"
	StateRunning         State = "running"
	StateConverged       State = "converged"
	StateBudgetExhausted State = "budget_exhausted"
	StateTerminated      State = "terminated"
)

// Condition names the algorithm variant under test.
type Condition string

const (
	// ConditionForgettingEngine is rank elimination with paradox retention.
	ConditionForgettingEngine Condition = "forgetting_engine"
	// ConditionRankOnly is the ablation baseline: pure rank elimination.
	ConditionRankOnly Condition = "rank_only"
	// ConditionRandomSearch is the Monte-Carlo baseline: the pool is
	// resampled every generation, keeping only the incumbent best.
	ConditionRandomSearch Condition = "random_search"
)

// Conditions lists the supported algorithm conditions in sorted order.
func Conditions() []Condition {
	return []Condition{ConditionForgettingEngine, ConditionRandomSearch, ConditionRankOnly}
}

// ParseCondition validates a condition name.
func ParseCondition(name string) (Condition, error) {
	switch Condition(name) {
	case ConditionForgettingEngine, ConditionRankOnly, ConditionRandomSearch:
		return Condition(name), nil
	default:
		return "", fmt.Errorf("unsupported condition: %s", name)
	}
}

// VaryFunc derives a new solution from a parent using the supplied stream.
type VaryFunc func(parent model.Solution, rng *rand.Rand) (model.Solution, error)

// ErrAllCandidatesInvalid terminates a run whose entire pool degraded to the
// worst-fitness fallback: there is no signal left to select on.
var ErrAllCandidatesInvalid = errors.New("all candidates invalid after retry budget")

// Result is the terminal outcome of one optimizer run.
type Result struct {
	Outcome     string
	Generations int
	Trace       []model.GenerationSummary
	Final       model.FinalCandidate
	Success     bool
}

// Optimizer drives the generational loop for one trial. It is single-threaded
// and fully deterministic given (seed, adapter config).
type Optimizer struct {
	adapter   domain.Adapter
	cfg       domain.Config
	condition Condition
	rng       *rand.Rand
	retention RetentionFilter
	eliminate Eliminator
	state     State
}

func NewOptimizer(adapter domain.Adapter, condition Condition, rng *rand.Rand) (*Optimizer, error) {
	if adapter == nil {
		return nil, fmt.Errorf("domain adapter is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if _, err := ParseCondition(string(condition)); err != nil {
		return nil, err
	}
	cfg := adapter.Config()
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.EliminationFraction <= 0 || cfg.EliminationFraction >= 1 {
		return nil, fmt.Errorf("elimination fraction must be in (0,1)")
	}
	if cfg.MaxGenerations <= 0 {
		return nil, fmt.Errorf("max generations must be > 0")
	}
	if cfg.EvaluateRetries < 0 {
		return nil, fmt.Errorf("evaluate retries must be >= 0")
	}

	return &Optimizer{
		adapter:   adapter,
		cfg:       cfg,
		condition: condition,
		rng:       rng,
		retention: RetentionFilter{
			CoherenceThreshold: cfg.CoherenceThreshold,
			ParadoxThreshold:   cfg.ParadoxThreshold,
			Cap:                cfg.RetentionCap,
			Normalize:          adapter.NormalizeAnomaly,
		},
		eliminate: Eliminator{Fraction: cfg.EliminationFraction},
		state:     StateInit,
	}, nil
}

// State reports the optimizer's current lifecycle state.
func (o *Optimizer) State() State {
	return o.state
}

// Run executes the generational loop to a terminal state. Cancellation is
// honored at generation boundaries only; a canceled run returns the context
// error and no partial result.
func (o *Optimizer) Run(ctx context.Context) (Result, error) {
	solutions, err := o.adapter.Initialize(o.rng)
	if err != nil {
		o.state = StateTerminated
		return Result{}, fmt.Errorf("initialize population: %w", err)
	}
	if len(solutions) != o.cfg.PopulationSize {
		o.state = StateTerminated
		return Result{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(solutions), o.cfg.PopulationSize)
	}
	pool, err := NewPool(solutions, o.cfg.Weights)
	if err != nil {
		o.state = StateTerminated
		return Result{}, err
	}

	o.state = StateRunning
	trace := make([]model.GenerationSummary, 0, o.cfg.MaxGenerations)

	for generation := 0; ; generation++ {
		if err := ctx.Err(); err != nil {
			o.state = StateTerminated
			return Result{}, err
		}

		optimal, err := o.evaluatePool(pool)
		if err != nil {
			o.state = StateTerminated
			return Result{}, err
		}

		exempt := map[int]struct{}{}
		if o.condition == ConditionForgettingEngine {
			exempt = o.retention.Exempt(pool)
		}

		terminal := false
		outcome := ""
		switch {
		case optimal:
			o.state = StateConverged
			outcome = model.OutcomeConverged
			terminal = true
		case generation+1 >= o.cfg.MaxGenerations:
			o.state = StateBudgetExhausted
			outcome = model.OutcomeBudgetExhausted
			terminal = true
		}

		if terminal {
			trace = append(trace, pool.Summarize(generation+1, len(exempt), 0))
			best := pool.Best()
			final := model.FinalCandidate{
				Solution: pool.At(best).Solution.Encode(),
				Fitness:  pool.At(best).Fitness,
				Score:    pool.Score(best),
			}
			result := Result{
				Outcome:     outcome,
				Generations: generation + 1,
				Trace:       trace,
				Final:       final,
				Success:     o.state == StateConverged,
			}
			o.state = StateTerminated
			return result, nil
		}

		eliminated, err := o.nextGeneration(pool, exempt)
		if err != nil {
			o.state = StateTerminated
			return Result{}, err
		}
		trace = append(trace, pool.Summarize(generation+1, len(exempt), eliminated))
	}
}

// nextGeneration applies retention-aware elimination and refills the pool.
// It returns the number of candidates removed. Summaries are taken after the
// transition so the trace reflects what the next generation starts from.
func (o *Optimizer) nextGeneration(pool *Pool, exempt map[int]struct{}) (int, error) {
	if o.condition == ConditionRandomSearch {
		return o.resample(pool)
	}

	removed := o.eliminate.Plan(pool, exempt)
	if err := o.eliminate.Apply(pool, removed, o.adapter.Vary, o.rng); err != nil {
		return 0, err
	}
	return len(removed), nil
}

// resample keeps only the incumbent best candidate and redraws the rest of
// the pool from the domain's initializer.
func (o *Optimizer) resample(pool *Pool) (int, error) {
	fresh, err := o.adapter.Initialize(o.rng)
	if err != nil {
		return 0, fmt.Errorf("resample population: %w", err)
	}
	if len(fresh) != pool.Size() {
		return 0, fmt.Errorf("resample population mismatch: got=%d want=%d", len(fresh), pool.Size())
	}
	best := pool.Best()
	replaced := 0
	cursor := 0
	for i := 0; i < pool.Size(); i++ {
		if i == best {
			continue
		}
		pool.Replace(i, fresh[cursor])
		cursor++
		replaced++
	}
	return replaced, nil
}

// evaluatePool fills in fitness for every unevaluated candidate, applying
// the bounded invalid-candidate retry with a worst-fitness fallback, and
// reports whether any evaluated candidate satisfies the success predicate.
func (o *Optimizer) evaluatePool(pool *Pool) (bool, error) {
	for _, idx := range pool.Unevaluated() {
		if err := o.evaluateCandidate(pool, idx); err != nil {
			return false, err
		}
	}

	allDegraded := true
	optimal := false
	for i := 0; i < pool.Size(); i++ {
		c := pool.At(i)
		if !c.Degraded {
			allDegraded = false
		}
		if !c.Degraded && o.adapter.IsOptimal(c.Solution, c.Fitness) {
			optimal = true
		}
	}
	if allDegraded {
		return false, ErrAllCandidatesInvalid
	}
	return optimal, nil
}

func (o *Optimizer) evaluateCandidate(pool *Pool, idx int) error {
	sol := pool.At(idx).Solution
	fit, err := o.adapter.Evaluate(sol)
	if err == nil {
		pool.SetFitness(idx, fit, false)
		return nil
	}

	for attempt := 0; attempt < o.cfg.EvaluateRetries; attempt++ {
		varied, varyErr := o.adapter.Vary(sol, o.rng)
		if varyErr != nil {
			return fmt.Errorf("vary after invalid candidate: %w", varyErr)
		}
		fit, err = o.adapter.Evaluate(varied)
		if err == nil {
			pool.Replace(idx, varied)
			pool.SetFitness(idx, fit, false)
			return nil
		}
		sol = varied
	}

	// Retry budget spent: keep the candidate with the worst possible
	// fitness rather than discarding it.
	pool.Replace(idx, sol)
	pool.SetFitness(idx, model.FitnessVector{}, true)
	return nil
}
