package trial

import (
	"context"
	"fmt"

	"lethe/internal/model"
)

// Verdict classifies a reproducibility check.
type Verdict string

const (
	VerdictMatch    Verdict = "MATCH"
	VerdictMismatch Verdict = "MISMATCH"
	VerdictError    Verdict = "ERROR"
)

// Divergence points at the first generation where the recomputed trace
// departs from the stored one.
type Divergence struct {
	Generation int                      `json:"generation"`
	Stored     *model.GenerationSummary `json:"stored,omitempty"`
	Recomputed *model.GenerationSummary `json:"recomputed,omitempty"`
}

// VerifyReport is the outcome of re-running one stored trial.
type VerifyReport struct {
	Domain          string      `json:"domain"`
	Condition       string      `json:"condition"`
	Seed            int64       `json:"seed"`
	Verdict         Verdict     `json:"verdict"`
	Reason          string      `json:"reason,omitempty"`
	DigestValid     bool        `json:"digest_valid"`
	FinalMatches    bool        `json:"final_matches"`
	TraceMatches    bool        `json:"trace_matches"`
	FirstDivergence *Divergence `json:"first_divergence,omitempty"`
}

// Verify recomputes a trial from its seed and compares final candidate and
// full generation trace against the stored record for exact equality. It is
// a pure function of the stored record: applying it twice yields the same
// verdict.
func Verify(ctx context.Context, stored model.TrialRecord) (VerifyReport, error) {
	report := VerifyReport{
		Domain:    stored.Domain,
		Condition: stored.Condition,
		Seed:      stored.Seed,
	}

	report.DigestValid = stored.Digest == "" || stored.Digest == stored.Fingerprint()
	if !report.DigestValid {
		report.Verdict = VerdictError
		report.Reason = "stored record digest does not match its content"
		return report, nil
	}

	runner, err := NewRunner(RunnerConfig{Domain: stored.Domain, Condition: stored.Condition})
	if err != nil {
		report.Verdict = VerdictError
		report.Reason = err.Error()
		return report, nil
	}
	recomputed, err := runner.Run(ctx, stored.Seed)
	if err != nil {
		if ctx.Err() != nil {
			return VerifyReport{}, err
		}
		report.Verdict = VerdictError
		report.Reason = fmt.Sprintf("re-run failed: %v", err)
		return report, nil
	}

	report.FinalMatches = recomputed.Final == stored.Final &&
		recomputed.Success == stored.Success &&
		recomputed.Outcome == stored.Outcome &&
		recomputed.ErrorCode == stored.ErrorCode
	report.TraceMatches, report.FirstDivergence = compareTraces(stored.Trace, recomputed.Trace)

	if report.FinalMatches && report.TraceMatches {
		report.Verdict = VerdictMatch
		return report, nil
	}
	report.Verdict = VerdictMismatch
	if !report.TraceMatches && report.FirstDivergence != nil {
		report.Reason = fmt.Sprintf("trace diverges at generation %d", report.FirstDivergence.Generation)
	} else {
		report.Reason = "final candidate differs"
	}
	return report, nil
}

func compareTraces(stored, recomputed []model.GenerationSummary) (bool, *Divergence) {
	limit := len(stored)
	if len(recomputed) < limit {
		limit = len(recomputed)
	}
	for i := 0; i < limit; i++ {
		if stored[i] != recomputed[i] {
			s, r := stored[i], recomputed[i]
			return false, &Divergence{Generation: stored[i].Generation, Stored: &s, Recomputed: &r}
		}
	}
	if len(stored) != len(recomputed) {
		div := &Divergence{Generation: limit + 1}
		if limit < len(stored) {
			s := stored[limit]
			div.Generation = s.Generation
			div.Stored = &s
		}
		if limit < len(recomputed) {
			r := recomputed[limit]
			div.Generation = r.Generation
			div.Recomputed = &r
		}
		return false, div
	}
	return true, nil
}
