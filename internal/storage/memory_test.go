package storage

import (
	"context"
	"testing"

	"lethe/internal/manifest"
	"lethe/internal/model"
)

func storedTrial(condition string, seed int64, generations int) model.TrialRecord {
	rec := model.TrialRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		Domain:      "sphere",
		Condition:   condition,
		Seed:        seed,
		Generations: generations,
		Success:     true,
		Outcome:     model.OutcomeConverged,
	}
	rec.Digest = rec.Fingerprint()
	return rec
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return store
}

func TestMemoryStoreTrialRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := storedTrial("forgetting_engine", 42, 17)
	if err := store.SaveTrialRecord(ctx, rec); err != nil {
		t.Fatalf("SaveTrialRecord: %v", err)
	}

	got, ok, err := store.GetTrialRecord(ctx, "sphere", "forgetting_engine", 42)
	if err != nil {
		t.Fatalf("GetTrialRecord: %v", err)
	}
	if !ok {
		t.Fatal("record not found after save")
	}
	if got.Digest != rec.Digest || got.Generations != rec.Generations {
		t.Fatalf("round trip changed record: %+v", got)
	}

	_, ok, err = store.GetTrialRecord(ctx, "sphere", "forgetting_engine", 43)
	if err != nil {
		t.Fatalf("GetTrialRecord: %v", err)
	}
	if ok {
		t.Fatal("missing record reported as found")
	}
}

func TestMemoryStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SaveTrialRecord(ctx, storedTrial("forgetting_engine", 1, 10)); err != nil {
		t.Fatalf("SaveTrialRecord: %v", err)
	}
	if err := store.SaveTrialRecord(ctx, storedTrial("forgetting_engine", 1, 99)); err != nil {
		t.Fatalf("SaveTrialRecord: %v", err)
	}

	got, ok, err := store.GetTrialRecord(ctx, "sphere", "forgetting_engine", 1)
	if err != nil || !ok {
		t.Fatalf("GetTrialRecord: ok=%v err=%v", ok, err)
	}
	if got.Generations != 99 {
		t.Fatalf("generations = %d, want 99", got.Generations)
	}
}

func TestMemoryStoreListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, seed := range []int64{9, 2, 5} {
		if err := store.SaveTrialRecord(ctx, storedTrial("forgetting_engine", seed, 1)); err != nil {
			t.Fatalf("SaveTrialRecord: %v", err)
		}
	}
	if err := store.SaveTrialRecord(ctx, storedTrial("random_search", 1, 1)); err != nil {
		t.Fatalf("SaveTrialRecord: %v", err)
	}

	records, err := store.ListTrialRecords(ctx, "sphere", "forgetting_engine")
	if err != nil {
		t.Fatalf("ListTrialRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	for i, want := range []int64{2, 5, 9} {
		if records[i].Seed != want {
			t.Fatalf("records[%d].Seed = %d, want %d", i, records[i].Seed, want)
		}
	}
}

func TestMemoryStoreManifestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m, err := manifest.New("exp-001", []manifest.DomainPlan{{
		Domain:     "sphere",
		Conditions: []string{"forgetting_engine"},
		SeedRanges: []manifest.SeedRange{{Start: 1, End: 3}},
	}})
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}

	if err := store.SaveManifest(ctx, m); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}
	got, ok, err := store.GetManifest(ctx, "exp-001")
	if err != nil || !ok {
		t.Fatalf("GetManifest: ok=%v err=%v", ok, err)
	}
	if got.ProtocolHash != m.ProtocolHash {
		t.Fatalf("hash changed in round trip")
	}

	_, ok, err = store.GetManifest(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("missing manifest: ok=%v err=%v", ok, err)
	}
}
