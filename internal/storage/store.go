package storage

import (
	"context"

	"lethe/internal/manifest"
	"lethe/internal/model"
)

// Store defines persistence operations for trial records and experiment
// manifests.
type Store interface {
	Init(ctx context.Context) error
	SaveTrialRecord(ctx context.Context, record model.TrialRecord) error
	GetTrialRecord(ctx context.Context, domain, condition string, seed int64) (model.TrialRecord, bool, error)
	ListTrialRecords(ctx context.Context, domain, condition string) ([]model.TrialRecord, error)
	SaveManifest(ctx context.Context, m manifest.Manifest) error
	GetManifest(ctx context.Context, experimentID string) (manifest.Manifest, bool, error)
}
