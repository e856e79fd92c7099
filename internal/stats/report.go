package stats

import "fmt"

// DomainComparison is one domain's comparison annotated with multiple-testing
// corrected p-values across the whole report.
type DomainComparison struct {
	Comparison
	PValueBonferroni float64 `json:"p_value_bonferroni"`
	PValueBH         float64 `json:"p_value_bh"`
	Significant      bool    `json:"significant"`
}

// CrossDomainReport aggregates per-domain comparisons under a shared alpha.
// Significance is judged on the Benjamini-Hochberg adjusted p-value.
type CrossDomainReport struct {
	Alpha            float64            `json:"alpha"`
	Test             TestKind           `json:"test"`
	Baseline         string             `json:"baseline"`
	Treatment        string             `json:"treatment"`
	Domains          []DomainComparison `json:"domains"`
	SignificantCount int                `json:"significant_count"`
}

// CrossDomain corrects the comparisons' p-values for the family size and
// counts domains that stay significant.
func CrossDomain(comparisons []Comparison, alpha float64) (CrossDomainReport, error) {
	if len(comparisons) == 0 {
		return CrossDomainReport{}, fmt.Errorf("cross-domain report requires at least one comparison")
	}
	if alpha <= 0 || alpha >= 1 {
		return CrossDomainReport{}, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}

	pValues := make([]float64, len(comparisons))
	for i, cmp := range comparisons {
		pValues[i] = cmp.Test.PValue
	}
	bonferroni := BonferroniCorrect(pValues)
	bh := BenjaminiHochberg(pValues)

	report := CrossDomainReport{
		Alpha:     alpha,
		Test:      comparisons[0].Test.Kind,
		Baseline:  comparisons[0].Baseline.Condition,
		Treatment: comparisons[0].Treatment.Condition,
		Domains:   make([]DomainComparison, len(comparisons)),
	}
	for i, cmp := range comparisons {
		entry := DomainComparison{
			Comparison:       cmp,
			PValueBonferroni: bonferroni[i],
			PValueBH:         bh[i],
			Significant:      bh[i] < alpha,
		}
		if entry.Significant {
			report.SignificantCount++
		}
		report.Domains[i] = entry
	}
	return report, nil
}
