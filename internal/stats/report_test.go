package stats

import "testing"

func domainComparison(domain string, pValue float64) Comparison {
	return Comparison{
		Domain:    domain,
		Baseline:  ConditionSummary{Condition: "random_search"},
		Treatment: ConditionSummary{Condition: "forgetting_engine"},
		Test:      TestResult{Kind: TestTwoProportion, PValue: pValue},
	}
}

func TestCrossDomainCorrectsAndCounts(t *testing.T) {
	report, err := CrossDomain([]Comparison{
		domainComparison("sphere", 0.001),
		domainComparison("archsearch", 0.02),
		domainComparison("flatline", 0.9),
	}, 0.05)
	if err != nil {
		t.Fatalf("CrossDomain: %v", err)
	}
	if report.Baseline != "random_search" || report.Treatment != "forgetting_engine" {
		t.Fatalf("conditions = %s vs %s", report.Baseline, report.Treatment)
	}
	if len(report.Domains) != 3 {
		t.Fatalf("domains = %d, want 3", len(report.Domains))
	}

	// Bonferroni scales by 3; BH adjusts by rank.
	almostEqual(t, "bonferroni sphere", report.Domains[0].PValueBonferroni, 0.003, 1e-12)
	almostEqual(t, "bh sphere", report.Domains[0].PValueBH, 0.003, 1e-12)
	almostEqual(t, "bh archsearch", report.Domains[1].PValueBH, 0.03, 1e-12)
	almostEqual(t, "bh flatline", report.Domains[2].PValueBH, 0.9, 1e-12)

	if !report.Domains[0].Significant || !report.Domains[1].Significant || report.Domains[2].Significant {
		t.Fatalf("unexpected significance flags: %+v", report.Domains)
	}
	if report.SignificantCount != 2 {
		t.Fatalf("significant count = %d, want 2", report.SignificantCount)
	}
}

func TestCrossDomainValidation(t *testing.T) {
	if _, err := CrossDomain(nil, 0.05); err == nil {
		t.Fatal("expected error for empty comparisons")
	}
	if _, err := CrossDomain([]Comparison{domainComparison("sphere", 0.1)}, 0); err == nil {
		t.Fatal("expected error for zero alpha")
	}
	if _, err := CrossDomain([]Comparison{domainComparison("sphere", 0.1)}, 1); err == nil {
		t.Fatal("expected error for alpha of one")
	}
}

func TestCrossDomainReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report, err := CrossDomain([]Comparison{domainComparison("sphere", 0.01)}, 0.05)
	if err != nil {
		t.Fatalf("CrossDomain: %v", err)
	}

	path, err := WriteCrossDomainReport(dir, report)
	if err != nil {
		t.Fatalf("WriteCrossDomainReport: %v", err)
	}
	if path == "" {
		t.Fatal("expected report path")
	}

	loaded, ok, err := ReadCrossDomainReport(dir, "random_search", "forgetting_engine")
	if err != nil || !ok {
		t.Fatalf("ReadCrossDomainReport: ok=%v err=%v", ok, err)
	}
	if loaded.SignificantCount != report.SignificantCount {
		t.Fatalf("round trip changed report: %+v", loaded)
	}

	_, ok, err = ReadCrossDomainReport(dir, "random_search", "rank_only")
	if err != nil || ok {
		t.Fatalf("missing report: ok=%v err=%v", ok, err)
	}
}
