package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"lethe/internal/domain"
	"lethe/internal/engine"
	"lethe/internal/model"
)

// RunnerConfig fixes the (domain, condition) pair a runner executes trials
// for. Seeds vary per call.
type RunnerConfig struct {
	Domain    string
	Condition string
}

// Runner executes seeded trials to completion and emits immutable trial
// records. One optimizer run per trial; the candidate pool never outlives it.
type Runner struct {
	cfg       RunnerConfig
	condition engine.Condition
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	condition, err := engine.ParseCondition(cfg.Condition)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, condition: condition}, nil
}

// Run executes one trial for the given seed. Trial-local failures (adapter
// construction, invalid-candidate exhaustion) come back as failed records,
// not errors; only cancellation and unexpected adapter faults return an
// error, in which case no record is produced.
func (r *Runner) Run(ctx context.Context, seed int64) (model.TrialRecord, error) {
	started := time.Now()

	record := model.TrialRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: model.SupportedSchemaVersion,
			CodecVersion:  model.SupportedCodecVersion,
		},
		Domain:    r.cfg.Domain,
		Condition: r.cfg.Condition,
		Seed:      seed,
	}

	adapter, err := domain.Resolve(r.cfg.Domain)
	if err != nil {
		return r.finish(record, started, model.OutcomeFailed, model.ErrorCodeAdapterConstruction), nil
	}

	// The per-trial stream is owned entirely by this run; no global seed
	// state is shared across trials.
	rng := rand.New(rand.NewSource(seed))
	optimizer, err := engine.NewOptimizer(adapter, r.condition, rng)
	if err != nil {
		return r.finish(record, started, model.OutcomeFailed, model.ErrorCodeAdapterConstruction), nil
	}

	result, err := optimizer.Run(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrAllCandidatesInvalid) {
			return r.finish(record, started, model.OutcomeFailed, model.ErrorCodeInvalidCandidates), nil
		}
		if ctx.Err() != nil {
			// Aborted at a generation boundary; partial trials are
			// discarded, never recorded.
			return model.TrialRecord{}, ctx.Err()
		}
		return model.TrialRecord{}, fmt.Errorf("trial %s/%s seed=%d: %w", r.cfg.Domain, r.cfg.Condition, seed, err)
	}

	record.Generations = result.Generations
	record.Trace = result.Trace
	record.Final = result.Final
	record.Success = result.Success
	record.Outcome = result.Outcome
	return r.seal(record, started), nil
}

func (r *Runner) finish(record model.TrialRecord, started time.Time, outcome, errorCode string) model.TrialRecord {
	record.Outcome = outcome
	record.ErrorCode = errorCode
	record.Success = false
	return r.seal(record, started)
}

func (r *Runner) seal(record model.TrialRecord, started time.Time) model.TrialRecord {
	record.Digest = record.Fingerprint()
	record.WallTimeMS = time.Since(started).Milliseconds()
	record.CreatedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)
	return record
}
