// Package lethe is the embedding API for the forgetting engine: seeded
// optimization trials, pre-registered experiment batches, reproducibility
// verification, and statistical summaries.
package lethe

import (
	"context"
	"errors"
	"fmt"

	"lethe/internal/domain"
	"lethe/internal/experiment"
	"lethe/internal/manifest"
	"lethe/internal/model"
	"lethe/internal/stats"
	"lethe/internal/storage"
	"lethe/internal/trial"
)

const (
	defaultTrialsDir = "trials"
	defaultDBPath    = "lethe.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	TrialsDir string
}

type Client struct {
	store     storage.Store
	trialsDir string
}

type TrialRequest struct {
	Domain    string
	Condition string
	Seed      int64
	Persist   bool
}

type RunManifestRequest struct {
	ManifestPath string
	Workers      int
}

type SeedRangeRequest struct {
	Domain    string
	Condition string
	SeedStart int64
	SeedEnd   int64
	Persist   bool
}

type VerifyRequest struct {
	Domain    string
	Condition string
	Seed      int64
}

type VerifyAllRequest struct {
	Domain    string
	Condition string
}

type SummarizeRequest struct {
	Domain    string
	Baseline  string
	Treatment string
	Test      string
	Persist   bool
}

type ReportRequest struct {
	Domains   []string
	Baseline  string
	Treatment string
	Test      string
	Alpha     float64
	Persist   bool
}

type TrialsRequest struct {
	Domain    string
	Condition string
	Limit     int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	trialsDir := opts.TrialsDir
	if trialsDir == "" {
		trialsDir = defaultTrialsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{store: store, trialsDir: trialsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store and registers the built-in domain adapters.
func (c *Client) Init(ctx context.Context) error {
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	return domain.RegisterDefaults()
}

// Domains lists the registered domain adapter names.
func (c *Client) Domains() []string {
	return domain.List()
}

// RunTrial executes one seeded trial and optionally persists its record.
func (c *Client) RunTrial(ctx context.Context, req TrialRequest) (model.TrialRecord, error) {
	runner, err := trial.NewRunner(trial.RunnerConfig{Domain: req.Domain, Condition: req.Condition})
	if err != nil {
		return model.TrialRecord{}, err
	}
	record, err := runner.Run(ctx, req.Seed)
	if err != nil {
		return model.TrialRecord{}, err
	}
	if req.Persist {
		if err := c.store.SaveTrialRecord(ctx, record); err != nil {
			return model.TrialRecord{}, err
		}
		if _, err := stats.WriteTrialRecord(c.trialsDir, record); err != nil {
			return model.TrialRecord{}, err
		}
	}
	return record, nil
}

// RunSeedRange executes one trial per seed in the inclusive range.
func (c *Client) RunSeedRange(ctx context.Context, req SeedRangeRequest) ([]model.TrialRecord, error) {
	if req.SeedEnd < req.SeedStart {
		return nil, fmt.Errorf("seed range end %d before start %d", req.SeedEnd, req.SeedStart)
	}
	records := make([]model.TrialRecord, 0, req.SeedEnd-req.SeedStart+1)
	for seed := req.SeedStart; seed <= req.SeedEnd; seed++ {
		record, err := c.RunTrial(ctx, TrialRequest{
			Domain:    req.Domain,
			Condition: req.Condition,
			Seed:      seed,
			Persist:   req.Persist,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// RunManifest executes every trial a manifest pre-registers.
func (c *Client) RunManifest(ctx context.Context, req RunManifestRequest) (experiment.Report, error) {
	if req.ManifestPath == "" {
		return experiment.Report{}, errors.New("manifest path is required")
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}

	m, err := manifest.Read(req.ManifestPath)
	if err != nil {
		return experiment.Report{}, err
	}
	runner, err := experiment.NewRunner(experiment.Config{
		Workers:   req.Workers,
		Store:     c.store,
		TrialsDir: c.trialsDir,
	})
	if err != nil {
		return experiment.Report{}, err
	}
	return runner.Run(ctx, m)
}

// Verify re-executes a stored trial and compares it against its record.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (trial.VerifyReport, error) {
	record, ok, err := c.store.GetTrialRecord(ctx, req.Domain, req.Condition, req.Seed)
	if err != nil {
		return trial.VerifyReport{}, err
	}
	if !ok {
		record, ok, err = stats.ReadTrialRecord(c.trialsDir, req.Domain, req.Condition, req.Seed)
		if err != nil {
			return trial.VerifyReport{}, err
		}
		if !ok {
			return trial.VerifyReport{}, fmt.Errorf("trial record not found: %s/%s/%d", req.Domain, req.Condition, req.Seed)
		}
	}
	return trial.Verify(ctx, record)
}

// VerifyAll re-verifies every stored trial of one (domain, condition) pair,
// ordered by seed.
func (c *Client) VerifyAll(ctx context.Context, req VerifyAllRequest) ([]trial.VerifyReport, error) {
	records, err := c.Trials(ctx, TrialsRequest{Domain: req.Domain, Condition: req.Condition})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no stored trials for %s/%s", req.Domain, req.Condition)
	}
	reports := make([]trial.VerifyReport, 0, len(records))
	for _, record := range records {
		report, err := trial.Verify(ctx, record)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Summarize compares two stored conditions for one domain.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (stats.Comparison, error) {
	if req.Test == "" {
		req.Test = string(stats.TestTwoProportion)
	}
	kind, err := stats.ParseTestKind(req.Test)
	if err != nil {
		return stats.Comparison{}, err
	}
	cmp, err := experiment.Summarize(ctx, c.store, req.Domain, req.Baseline, req.Treatment, kind)
	if err != nil {
		return stats.Comparison{}, err
	}
	if req.Persist {
		if _, err := stats.WriteComparison(c.trialsDir, cmp); err != nil {
			return stats.Comparison{}, err
		}
	}
	return cmp, nil
}

// Report builds a cross-domain comparison with multiple-testing correction.
func (c *Client) Report(ctx context.Context, req ReportRequest) (stats.CrossDomainReport, error) {
	if req.Test == "" {
		req.Test = string(stats.TestTwoProportion)
	}
	if req.Alpha == 0 {
		req.Alpha = 0.05
	}
	kind, err := stats.ParseTestKind(req.Test)
	if err != nil {
		return stats.CrossDomainReport{}, err
	}
	report, err := experiment.SummarizeAll(ctx, c.store, req.Domains, req.Baseline, req.Treatment, kind, req.Alpha)
	if err != nil {
		return stats.CrossDomainReport{}, err
	}
	if req.Persist {
		if _, err := stats.WriteCrossDomainReport(c.trialsDir, report); err != nil {
			return stats.CrossDomainReport{}, err
		}
	}
	return report, nil
}

// Trials lists stored trial records for a domain and condition.
func (c *Client) Trials(ctx context.Context, req TrialsRequest) ([]model.TrialRecord, error) {
	if req.Domain == "" || req.Condition == "" {
		return nil, errors.New("domain and condition are required")
	}
	records, err := c.store.ListTrialRecords(ctx, req.Domain, req.Condition)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records, err = stats.ListTrialRecords(c.trialsDir, req.Domain, req.Condition)
		if err != nil {
			return nil, err
		}
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return records, nil
}
