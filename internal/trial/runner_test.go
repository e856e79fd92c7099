package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"lethe/internal/domain"
	"lethe/internal/model"
)

func registerDomains(t *testing.T) {
	t.Helper()
	if err := domain.RegisterDefaults(); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
}

type stubSolution string

func (s stubSolution) Encode() string { return string(s) }

// unstableDomain never produces a valid fitness; every evaluation fails and
// every candidate ends up on the worst-fitness fallback.
type unstableDomain struct{}

func (unstableDomain) Name() string { return "unstable" }

func (unstableDomain) Config() domain.Config {
	return domain.Config{
		PopulationSize:      4,
		Weights:             model.Weights{Coherence: 1, Anomaly: 0.01, Consistency: 0.1},
		CoherenceThreshold:  0.8,
		ParadoxThreshold:    0.5,
		EliminationFraction: 0.25,
		MaxGenerations:      5,
		EvaluateRetries:     2,
	}
}

func (unstableDomain) Initialize(_ *rand.Rand) ([]model.Solution, error) {
	sols := make([]model.Solution, 4)
	for i := range sols {
		sols[i] = stubSolution(fmt.Sprintf("u-%d", i))
	}
	return sols, nil
}

func (unstableDomain) Vary(parent model.Solution, _ *rand.Rand) (model.Solution, error) {
	return parent, nil
}

func (unstableDomain) Evaluate(_ model.Solution) (model.FitnessVector, error) {
	return model.FitnessVector{}, errors.New("candidate evaluation diverged")
}

func (unstableDomain) NormalizeAnomaly(anomaly float64) float64 { return anomaly }

func (unstableDomain) IsOptimal(_ model.Solution, _ model.FitnessVector) bool { return false }

var registerUnstableOnce sync.Once

func registerUnstableDomain(t *testing.T) {
	t.Helper()
	registerUnstableOnce.Do(func() {
		if err := domain.Register("unstable", func() (domain.Adapter, error) {
			return unstableDomain{}, nil
		}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	})
}

func TestNewRunnerValidation(t *testing.T) {
	if _, err := NewRunner(RunnerConfig{Condition: "forgetting_engine"}); err == nil {
		t.Fatal("expected error for missing domain")
	}
	if _, err := NewRunner(RunnerConfig{Domain: "sphere", Condition: "hill_climb"}); err == nil {
		t.Fatal("expected error for unknown condition")
	}
}

func TestRunProducesSealedRecord(t *testing.T) {
	registerDomains(t)
	runner, err := NewRunner(RunnerConfig{Domain: "sphere", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	record, err := runner.Run(context.Background(), 42)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if record.SchemaVersion != model.SupportedSchemaVersion {
		t.Fatalf("schema version = %d", record.SchemaVersion)
	}
	if record.Digest == "" || record.CreatedAtUTC == "" {
		t.Fatal("record not sealed")
	}
	if record.Digest != record.Fingerprint() {
		t.Fatal("digest does not match fingerprint")
	}
	if !record.Success || record.Outcome != model.OutcomeConverged {
		t.Fatalf("expected converged run, got outcome=%s success=%t", record.Outcome, record.Success)
	}
	if record.Final.Solution != "0" {
		t.Fatalf("final solution = %s, want 0", record.Final.Solution)
	}
}

func TestRunFingerprintIsSeedDeterministic(t *testing.T) {
	registerDomains(t)
	runner, err := NewRunner(RunnerConfig{Domain: "sphere", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	a, err := runner.Run(context.Background(), 7)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := runner.Run(context.Background(), 7)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Digest != b.Digest {
		t.Fatalf("fingerprints differ for same seed: %s vs %s", a.Digest, b.Digest)
	}

	c, err := runner.Run(context.Background(), 8)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Digest == c.Digest {
		t.Fatal("distinct seeds produced identical fingerprints")
	}
}

func TestRunUnknownDomainYieldsFailedRecord(t *testing.T) {
	registerDomains(t)
	runner, err := NewRunner(RunnerConfig{Domain: "does-not-exist", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	record, err := runner.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed adapter construction must not surface as an error: %v", err)
	}
	if record.Success {
		t.Fatal("failed trial marked successful")
	}
	if record.Outcome != model.OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", record.Outcome, model.OutcomeFailed)
	}
	if record.ErrorCode != model.ErrorCodeAdapterConstruction {
		t.Fatalf("error code = %s, want %s", record.ErrorCode, model.ErrorCodeAdapterConstruction)
	}
	if record.Digest == "" {
		t.Fatal("failed record must still be sealed")
	}
}

func TestRunAllInvalidCandidatesYieldsFailedRecord(t *testing.T) {
	registerUnstableDomain(t)
	runner, err := NewRunner(RunnerConfig{Domain: "unstable", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	record, err := runner.Run(context.Background(), 11)
	if err != nil {
		t.Fatalf("invalid-candidate exhaustion must not surface as an error: %v", err)
	}
	if record.Success {
		t.Fatal("failed trial marked successful")
	}
	if record.Outcome != model.OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", record.Outcome, model.OutcomeFailed)
	}
	if record.ErrorCode != model.ErrorCodeInvalidCandidates {
		t.Fatalf("error code = %s, want %s", record.ErrorCode, model.ErrorCodeInvalidCandidates)
	}
	if record.Digest == "" || record.Digest != record.Fingerprint() {
		t.Fatal("failed record must still be sealed")
	}
}

func TestRunCanceledContextDiscardsPartial(t *testing.T) {
	registerDomains(t)
	runner, err := NewRunner(RunnerConfig{Domain: "sphere", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	record, err := runner.Run(ctx, 42)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if record.Digest != "" || record.Generations != 0 {
		t.Fatal("canceled trial must not produce a record")
	}
}
