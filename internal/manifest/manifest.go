package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrManifestIntegrity marks a manifest whose protocol hash no longer matches
// its body. This is fatal for the whole experiment: every pre-registration
// claim depends on the manifest being untouched.
var ErrManifestIntegrity = errors.New("manifest integrity violation")

// SeedRange is an inclusive integer seed interval.
type SeedRange struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// DomainPlan pre-registers the conditions and seeds to run for one domain.
type DomainPlan struct {
	Domain     string      `json:"domain" yaml:"domain"`
	Conditions []string    `json:"conditions" yaml:"conditions"`
	SeedRanges []SeedRange `json:"seed_ranges" yaml:"seed_ranges"`
}

// Manifest is the pre-registered, hash-sealed description of an experiment.
// It is created once before any trial runs and never mutated; edits
// invalidate the protocol hash.
type Manifest struct {
	ExperimentID string       `json:"experiment_id" yaml:"experiment_id"`
	CreatedAtUTC string       `json:"created_at_utc" yaml:"created_at_utc"`
	Plans        []DomainPlan `json:"plans" yaml:"plans"`
	ProtocolHash string       `json:"protocol_hash" yaml:"protocol_hash"`
}

// TrialKey identifies one trial drawn from a manifest.
type TrialKey struct {
	Domain    string
	Condition string
	Seed      int64
}

// New seals a manifest over the given plans. A missing experiment id gets a
// fresh UUID.
func New(experimentID string, plans []DomainPlan) (Manifest, error) {
	if len(plans) == 0 {
		return Manifest{}, fmt.Errorf("manifest requires at least one domain plan")
	}
	for i, plan := range plans {
		if plan.Domain == "" {
			return Manifest{}, fmt.Errorf("plan %d: domain is required", i)
		}
		if len(plan.Conditions) == 0 {
			return Manifest{}, fmt.Errorf("plan %d: at least one condition is required", i)
		}
		if len(plan.SeedRanges) == 0 {
			return Manifest{}, fmt.Errorf("plan %d: at least one seed range is required", i)
		}
		for j, sr := range plan.SeedRanges {
			if sr.End < sr.Start {
				return Manifest{}, fmt.Errorf("plan %d seed range %d: end %d before start %d", i, j, sr.End, sr.Start)
			}
		}
	}
	if experimentID == "" {
		experimentID = uuid.NewString()
	}

	m := Manifest{
		ExperimentID: experimentID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Plans:        plans,
	}
	m.ProtocolHash = m.ComputeHash()
	return m, nil
}

// ComputeHash digests the manifest body (hash field excluded) canonically.
func (m Manifest) ComputeHash() string {
	body := struct {
		ExperimentID string       `json:"experiment_id"`
		CreatedAtUTC string       `json:"created_at_utc"`
		Plans        []DomainPlan `json:"plans"`
	}{
		ExperimentID: m.ExperimentID,
		CreatedAtUTC: m.CreatedAtUTC,
		Plans:        m.Plans,
	}
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the protocol hash and rejects any post-hoc edit.
func (m Manifest) Verify() error {
	if m.ProtocolHash == "" {
		return fmt.Errorf("%w: protocol hash is missing", ErrManifestIntegrity)
	}
	if m.ComputeHash() != m.ProtocolHash {
		return fmt.Errorf("%w: protocol hash does not match manifest body", ErrManifestIntegrity)
	}
	return nil
}

// Trials enumerates every (domain, condition, seed) triple in deterministic
// manifest order.
func (m Manifest) Trials() []TrialKey {
	out := make([]TrialKey, 0, 64)
	for _, plan := range m.Plans {
		for _, condition := range plan.Conditions {
			for _, sr := range plan.SeedRanges {
				for seed := sr.Start; seed <= sr.End; seed++ {
					out = append(out, TrialKey{Domain: plan.Domain, Condition: condition, Seed: seed})
				}
			}
		}
	}
	return out
}

// TrialCount returns the number of trials the manifest pre-registers.
func (m Manifest) TrialCount() int {
	total := 0
	for _, plan := range m.Plans {
		seeds := int64(0)
		for _, sr := range plan.SeedRanges {
			seeds += sr.End - sr.Start + 1
		}
		total += len(plan.Conditions) * int(seeds)
	}
	return total
}

// Write stores the manifest as YAML.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a manifest from YAML without verifying it; callers decide when
// integrity is fatal.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}
