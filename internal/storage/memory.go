package storage

import (
	"context"
	"sort"
	"sync"

	"lethe/internal/manifest"
	"lethe/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	trials      map[string]model.TrialRecord
	manifests   map[string]manifest.Manifest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.trials = make(map[string]model.TrialRecord)
	s.manifests = make(map[string]manifest.Manifest)
	return nil
}

func (s *MemoryStore) SaveTrialRecord(_ context.Context, record model.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials[record.Key()] = record
	return nil
}

func (s *MemoryStore) GetTrialRecord(_ context.Context, domain, condition string, seed int64) (model.TrialRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.trials[model.TrialRecord{Domain: domain, Condition: condition, Seed: seed}.Key()]
	return record, ok, nil
}

func (s *MemoryStore) ListTrialRecords(_ context.Context, domain, condition string) ([]model.TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.TrialRecord, 0, len(s.trials))
	for _, record := range s.trials {
		if record.Domain == domain && record.Condition == condition {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seed < records[j].Seed })
	return records, nil
}

func (s *MemoryStore) SaveManifest(_ context.Context, m manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.manifests[m.ExperimentID] = m
	return nil
}

func (s *MemoryStore) GetManifest(_ context.Context, experimentID string) (manifest.Manifest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[experimentID]
	return m, ok, nil
}
