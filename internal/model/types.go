package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Solution is the opaque, domain-defined candidate value. Encode must return
// a stable canonical string: two solutions are identical iff their encodings
// are byte-equal. Records and reproducibility checks rely on this.
type Solution interface {
	Encode() string
}

// FitnessVector is the three-component fitness reported by a domain adapter.
// Coherence and Consistency live in [0,1]; Anomaly is unbounded above.
type FitnessVector struct {
	Coherence   float64 `json:"coherence"`
	Anomaly     float64 `json:"anomaly"`
	Consistency float64 `json:"consistency"`
}

// Weights combine the fitness components into a scalar score. Paradox weighs
// the coherence*anomaly interaction term.
type Weights struct {
	Coherence   float64 `json:"coherence"`
	Anomaly     float64 `json:"anomaly"`
	Consistency float64 `json:"consistency"`
	Paradox     float64 `json:"paradox"`
}

// Score is always computed from the current vector; callers must not cache it
// across fitness updates.
func (v FitnessVector) Score(w Weights) float64 {
	return w.Coherence*v.Coherence +
		w.Anomaly*v.Anomaly +
		w.Consistency*v.Consistency +
		w.Paradox*(v.Coherence*v.Anomaly)
}

// Candidate pairs a solution with its fitness annotation inside a pool.
// Origin is the index the candidate first occupied in the current pool and
// is the tie-break key for equal scores.
type Candidate struct {
	Solution  Solution
	Fitness   FitnessVector
	Evaluated bool
	Degraded  bool
	Origin    int
}

// Trial outcomes.
const (
	OutcomeConverged       = "converged"
	OutcomeBudgetExhausted = "budget_exhausted"
	OutcomeFailed          = "failed"
)

// Trial error codes. Canceled trials produce no record at all, so they carry
// no code here.
const (
	ErrorCodeAdapterConstruction = "adapter_construction"
	ErrorCodeInvalidCandidates   = "invalid_candidate"
)

// GenerationSummary is one entry of a trial's generation trace. Every field
// is a deterministic function of (seed, adapter config) and takes part in
// reproducibility comparison.
type GenerationSummary struct {
	Generation    int     `json:"generation"`
	BestScore     float64 `json:"best_score"`
	MeanScore     float64 `json:"mean_score"`
	WorstScore    float64 `json:"worst_score"`
	BestSolution  string  `json:"best_solution"`
	ExemptCount   int     `json:"exempt_count"`
	Eliminated    int     `json:"eliminated"`
	DegradedCount int     `json:"degraded_count"`
}

// FinalCandidate is the best-scoring candidate of the terminal pool.
type FinalCandidate struct {
	Solution string        `json:"solution"`
	Fitness  FitnessVector `json:"fitness"`
	Score    float64       `json:"score"`
}

// TrialRecord is the immutable outcome of one seeded trial, keyed by
// (domain, condition, seed). WallTimeMS and CreatedAtUTC are bookkeeping and
// excluded from the deterministic fingerprint.
type TrialRecord struct {
	VersionedRecord
	Domain       string              `json:"domain"`
	Condition    string              `json:"condition"`
	Seed         int64               `json:"seed"`
	Generations  int                 `json:"generations"`
	Trace        []GenerationSummary `json:"generation_trace"`
	Final        FinalCandidate      `json:"final_candidate"`
	Success      bool                `json:"success"`
	Outcome      string              `json:"outcome"`
	ErrorCode    string              `json:"error_code,omitempty"`
	Digest       string              `json:"digest,omitempty"`
	WallTimeMS   int64               `json:"wall_time_ms"`
	CreatedAtUTC string              `json:"created_at_utc,omitempty"`
}

// Key returns the record's unique identity within an experiment.
func (r TrialRecord) Key() string {
	return fmt.Sprintf("%s/%s/%d", r.Domain, r.Condition, r.Seed)
}

// Fingerprint digests the deterministic fields of the record. Two runs of
// the same (domain, condition, seed) must produce equal fingerprints.
func (r TrialRecord) Fingerprint() string {
	body := struct {
		Domain      string              `json:"domain"`
		Condition   string              `json:"condition"`
		Seed        int64               `json:"seed"`
		Generations int                 `json:"generations"`
		Trace       []GenerationSummary `json:"generation_trace"`
		Final       FinalCandidate      `json:"final_candidate"`
		Success     bool                `json:"success"`
		Outcome     string              `json:"outcome"`
		ErrorCode   string              `json:"error_code,omitempty"`
	}{
		Domain:      r.Domain,
		Condition:   r.Condition,
		Seed:        r.Seed,
		Generations: r.Generations,
		Trace:       r.Trace,
		Final:       r.Final,
		Success:     r.Success,
		Outcome:     r.Outcome,
		ErrorCode:   r.ErrorCode,
	}
	data, err := json.Marshal(body)
	if err != nil {
		// Marshal of a plain struct cannot fail at runtime.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
