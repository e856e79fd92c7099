package experiment

import (
	"context"
	"errors"
	"testing"

	"lethe/internal/domain"
	"lethe/internal/manifest"
	"lethe/internal/stats"
	"lethe/internal/storage"
)

func testManifest(t *testing.T) manifest.Manifest {
	t.Helper()
	m, err := manifest.New("exp-test", []manifest.DomainPlan{{
		Domain:     "sphere",
		Conditions: []string{"forgetting_engine", "random_search"},
		SeedRanges: []manifest.SeedRange{{Start: 1, End: 3}},
	}})
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	return m
}

func newBatchRunner(t *testing.T, trialsDir string) (*Runner, storage.Store) {
	t.Helper()
	if err := domain.RegisterDefaults(); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	runner, err := NewRunner(Config{Workers: 2, Store: store, TrialsDir: trialsDir})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner, store
}

func TestNewRunnerValidation(t *testing.T) {
	if _, err := NewRunner(Config{Workers: 0, Store: storage.NewMemoryStore()}); err == nil {
		t.Fatal("expected error for zero workers")
	}
	if _, err := NewRunner(Config{Workers: 1}); err == nil {
		t.Fatal("expected error for missing store")
	}
}

func TestRunExecutesAndPersistsManifest(t *testing.T) {
	ctx := context.Background()
	trialsDir := t.TempDir()
	runner, store := newBatchRunner(t, trialsDir)
	m := testManifest(t)

	report, err := runner.Run(ctx, m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ExperimentID != "exp-test" {
		t.Fatalf("experiment id = %s", report.ExperimentID)
	}
	if report.Trials != m.TrialCount() {
		t.Fatalf("trials = %d, want %d", report.Trials, m.TrialCount())
	}
	if report.Failures != 0 {
		t.Fatalf("failures = %d, want 0", report.Failures)
	}

	stored, ok, err := store.GetManifest(ctx, "exp-test")
	if err != nil || !ok {
		t.Fatalf("GetManifest: ok=%v err=%v", ok, err)
	}
	if stored.ProtocolHash != m.ProtocolHash {
		t.Fatal("stored manifest hash differs")
	}

	for _, key := range m.Trials() {
		record, ok, err := store.GetTrialRecord(ctx, key.Domain, key.Condition, key.Seed)
		if err != nil || !ok {
			t.Fatalf("record %s/%s/%d: ok=%v err=%v", key.Domain, key.Condition, key.Seed, ok, err)
		}
		if record.Digest == "" || record.Digest != record.Fingerprint() {
			t.Fatalf("record %s is not sealed", record.Key())
		}
	}

	index, err := stats.ListTrialIndex(trialsDir)
	if err != nil {
		t.Fatalf("ListTrialIndex: %v", err)
	}
	if len(index) != m.TrialCount() {
		t.Fatalf("index length = %d, want %d", len(index), m.TrialCount())
	}
}

func TestRunRejectsTamperedManifest(t *testing.T) {
	runner, _ := newBatchRunner(t, "")
	m := testManifest(t)
	m.Plans[0].SeedRanges[0].End = 999

	if _, err := runner.Run(context.Background(), m); !errors.Is(err, manifest.ErrManifestIntegrity) {
		t.Fatalf("err = %v, want ErrManifestIntegrity", err)
	}
}

func TestRunSkipsArtifactsWithoutTrialsDir(t *testing.T) {
	runner, store := newBatchRunner(t, "")
	m := testManifest(t)

	report, err := runner.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Trials != m.TrialCount() {
		t.Fatalf("trials = %d, want %d", report.Trials, m.TrialCount())
	}
	records, err := store.ListTrialRecords(context.Background(), "sphere", "forgetting_engine")
	if err != nil {
		t.Fatalf("ListTrialRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("stored records = %d, want 3", len(records))
	}
}

func TestSummarizeStoredConditions(t *testing.T) {
	ctx := context.Background()
	runner, store := newBatchRunner(t, "")
	if _, err := runner.Run(ctx, testManifest(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cmp, err := Summarize(ctx, store, "sphere", "random_search", "forgetting_engine", stats.TestTwoProportion)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if cmp.Baseline.Trials != 3 || cmp.Treatment.Trials != 3 {
		t.Fatalf("trials = %d vs %d, want 3 each", cmp.Baseline.Trials, cmp.Treatment.Trials)
	}
	if cmp.Test.Kind != stats.TestTwoProportion {
		t.Fatalf("test kind = %s", cmp.Test.Kind)
	}

	if _, err := Summarize(ctx, store, "sphere", "random_search", "rank_only", stats.TestTwoProportion); err == nil {
		t.Fatal("expected error for condition with no records")
	}
}
