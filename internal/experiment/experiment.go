package experiment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lethe/internal/manifest"
	"lethe/internal/model"
	"lethe/internal/stats"
	"lethe/internal/storage"
	"lethe/internal/trial"
)

// Config controls one batch execution of a pre-registered manifest.
type Config struct {
	Workers   int
	Store     storage.Store
	TrialsDir string
}

// Report summarizes a completed batch.
type Report struct {
	ExperimentID string `json:"experiment_id"`
	Trials       int    `json:"trials"`
	Successes    int    `json:"successes"`
	Failures     int    `json:"failures"`
}

// Runner executes every trial a manifest pre-registers. Individual trial
// failures become failed records; only infrastructure errors or cancellation
// abort the batch.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Runner{cfg: cfg}, nil
}

// Run verifies the manifest, executes all of its trials, and persists every
// terminal record. The manifest is saved alongside the records so a stored
// batch can always be traced back to its protocol hash.
func (r *Runner) Run(ctx context.Context, m manifest.Manifest) (Report, error) {
	if err := m.Verify(); err != nil {
		return Report{}, err
	}
	if err := r.cfg.Store.SaveManifest(ctx, m); err != nil {
		return Report{}, fmt.Errorf("save manifest: %w", err)
	}

	keys := m.Trials()
	records := make([]model.TrialRecord, len(keys))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Workers)
	for i, key := range keys {
		group.Go(func() error {
			runner, err := trial.NewRunner(trial.RunnerConfig{Domain: key.Domain, Condition: key.Condition})
			if err != nil {
				return fmt.Errorf("trial %s/%s: %w", key.Domain, key.Condition, err)
			}
			record, err := runner.Run(groupCtx, key.Seed)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Report{}, err
	}

	// Persistence stays sequential; the trial index artifact is a single
	// shared file.
	report := Report{ExperimentID: m.ExperimentID, Trials: len(records)}
	for _, record := range records {
		if err := r.cfg.Store.SaveTrialRecord(ctx, record); err != nil {
			return Report{}, fmt.Errorf("save trial %s: %w", record.Key(), err)
		}
		if r.cfg.TrialsDir != "" {
			if _, err := stats.WriteTrialRecord(r.cfg.TrialsDir, record); err != nil {
				return Report{}, fmt.Errorf("write trial artifact %s: %w", record.Key(), err)
			}
		}
		if record.Success {
			report.Successes++
		}
		if record.ErrorCode != "" {
			report.Failures++
		}
	}
	return report, nil
}

// SummarizeAll compares baseline against treatment for every listed domain
// and corrects the p-values for the family size.
func SummarizeAll(ctx context.Context, store storage.Store, domains []string, baseline, treatment string, kind stats.TestKind, alpha float64) (stats.CrossDomainReport, error) {
	if len(domains) == 0 {
		return stats.CrossDomainReport{}, fmt.Errorf("at least one domain is required")
	}
	comparisons := make([]stats.Comparison, 0, len(domains))
	for _, domain := range domains {
		cmp, err := Summarize(ctx, store, domain, baseline, treatment, kind)
		if err != nil {
			return stats.CrossDomainReport{}, fmt.Errorf("domain %s: %w", domain, err)
		}
		comparisons = append(comparisons, cmp)
	}
	return stats.CrossDomain(comparisons, alpha)
}

// Summarize loads the stored records for two conditions of one domain and
// runs the declared test.
func Summarize(ctx context.Context, store storage.Store, domain, baseline, treatment string, kind stats.TestKind) (stats.Comparison, error) {
	baseRecords, err := store.ListTrialRecords(ctx, domain, baseline)
	if err != nil {
		return stats.Comparison{}, err
	}
	treatRecords, err := store.ListTrialRecords(ctx, domain, treatment)
	if err != nil {
		return stats.Comparison{}, err
	}
	return stats.Summarize(domain, baseRecords, treatRecords, kind)
}
