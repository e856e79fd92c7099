package trial

import (
	"context"
	"testing"

	"lethe/internal/model"
)

func storedRecord(t *testing.T, seed int64) model.TrialRecord {
	t.Helper()
	registerDomains(t)
	runner, err := NewRunner(RunnerConfig{Domain: "sphere", Condition: "forgetting_engine"})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	record, err := runner.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return record
}

func TestVerifyMatchesFreshRecord(t *testing.T) {
	record := storedRecord(t, 42)

	report, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Verdict != VerdictMatch {
		t.Fatalf("verdict = %s (%s), want %s", report.Verdict, report.Reason, VerdictMatch)
	}
	if !report.DigestValid || !report.FinalMatches || !report.TraceMatches {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	record := storedRecord(t, 11)

	first, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	second, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if first.Verdict != second.Verdict {
		t.Fatalf("verdicts differ: %s vs %s", first.Verdict, second.Verdict)
	}
}

func TestVerifyDetectsTamperedDigest(t *testing.T) {
	record := storedRecord(t, 42)
	record.Final.Score += 1.0 // digest no longer covers the content

	report, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Verdict != VerdictError {
		t.Fatalf("verdict = %s, want %s", report.Verdict, VerdictError)
	}
	if report.DigestValid {
		t.Fatal("tampered record reported a valid digest")
	}
}

func TestVerifyDetectsDivergentTrace(t *testing.T) {
	record := storedRecord(t, 42)
	// Tamper, then re-seal so the digest passes and the divergence must be
	// found by recomputation.
	record.Trace[0].BestScore += 0.5
	record.Digest = record.Fingerprint()

	report, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Verdict != VerdictMismatch {
		t.Fatalf("verdict = %s, want %s", report.Verdict, VerdictMismatch)
	}
	if report.TraceMatches {
		t.Fatal("divergent trace reported as matching")
	}
	if report.FirstDivergence == nil || report.FirstDivergence.Generation != record.Trace[0].Generation {
		t.Fatalf("first divergence = %+v", report.FirstDivergence)
	}
}

func TestVerifyDetectsDivergentFinal(t *testing.T) {
	record := storedRecord(t, 42)
	record.Final.Solution = "999"
	record.Digest = record.Fingerprint()

	report, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Verdict != VerdictMismatch {
		t.Fatalf("verdict = %s, want %s", report.Verdict, VerdictMismatch)
	}
	if report.FinalMatches {
		t.Fatal("divergent final candidate reported as matching")
	}
}

func TestVerifyUnknownDomainIsError(t *testing.T) {
	record := storedRecord(t, 42)
	record.Domain = "vanished"
	record.Digest = record.Fingerprint()

	report, err := Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Verdict != VerdictMismatch && report.Verdict != VerdictError {
		t.Fatalf("verdict = %s, want MISMATCH or ERROR", report.Verdict)
	}
}
