package stats

import (
	"fmt"
	"math"
	"sort"

	"lethe/internal/model"
)

// TestKind selects the hypothesis test used when comparing two conditions.
// The kind is declared before looking at the data, not chosen afterwards.
type TestKind string

const (
	TestTwoProportion TestKind = "two_proportion"
	TestWelchT        TestKind = "welch_t"
	TestMannWhitney   TestKind = "mann_whitney"
)

// ParseTestKind validates a test name from config or CLI input.
func ParseTestKind(s string) (TestKind, error) {
	switch TestKind(s) {
	case TestTwoProportion, TestWelchT, TestMannWhitney:
		return TestKind(s), nil
	default:
		return "", fmt.Errorf("unknown test kind: %s", s)
	}
}

// Proportion carries a success proportion with its Wilson 95% interval.
type Proportion struct {
	Successes int     `json:"successes"`
	Total     int     `json:"total"`
	Value     float64 `json:"value"`
	CILow     float64 `json:"ci_low"`
	CIHigh    float64 `json:"ci_high"`
}

// TestResult is the outcome of one hypothesis test.
type TestResult struct {
	Kind       TestKind `json:"kind"`
	Statistic  float64  `json:"statistic"`
	PValue     float64  `json:"p_value"`
	EffectSize float64  `json:"effect_size"`
	EffectName string   `json:"effect_name"`
}

// EffectSize carries Cohen's d with its confidence interval and the
// conventional magnitude band.
type EffectSize struct {
	D              float64 `json:"d"`
	CILow          float64 `json:"ci_low"`
	CIHigh         float64 `json:"ci_high"`
	Interpretation string  `json:"interpretation"`
}

// ConditionSummary aggregates the trial records of one condition.
type ConditionSummary struct {
	Condition       string     `json:"condition"`
	Trials          int        `json:"trials"`
	Failures        int        `json:"failures"`
	SuccessRate     Proportion `json:"success_rate"`
	MeanGenerations float64    `json:"mean_generations"`
	StdGenerations  float64    `json:"std_generations"`
	MeanBestScore   float64    `json:"mean_best_score"`
	StdBestScore    float64    `json:"std_best_score"`
}

// Comparison is the full statistical report for baseline versus treatment
// within one domain.
type Comparison struct {
	Domain         string           `json:"domain"`
	Baseline       ConditionSummary `json:"baseline"`
	Treatment      ConditionSummary `json:"treatment"`
	Test           TestResult       `json:"test"`
	Effect         EffectSize       `json:"effect"`
	OddsRatio      float64          `json:"odds_ratio"`
	ImprovementPct float64          `json:"improvement_pct"`
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (ddof=1).
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// WilsonInterval computes the Wilson score 95% confidence interval for a
// binomial proportion. It behaves sensibly at 0 and n successes, unlike the
// normal approximation.
func WilsonInterval(successes, total int) Proportion {
	p := Proportion{Successes: successes, Total: total}
	if total == 0 {
		return p
	}
	const z = 1.959963984540054 // 97.5th percentile of the standard normal
	n := float64(total)
	phat := float64(successes) / n
	p.Value = phat

	z2 := z * z
	denom := 1 + z2/n
	center := (phat + z2/(2*n)) / denom
	half := z * math.Sqrt(phat*(1-phat)/n+z2/(4*n*n)) / denom
	p.CILow = math.Max(0, center-half)
	p.CIHigh = math.Min(1, center+half)
	return p
}

// TwoProportionZTest tests whether two success proportions differ, using the
// pooled two-sided z-test. Returns the z statistic, p-value and Cohen's h.
func TwoProportionZTest(s1, n1, s2, n2 int) (TestResult, error) {
	if n1 == 0 || n2 == 0 {
		return TestResult{}, fmt.Errorf("two proportion z-test requires nonzero sample sizes")
	}
	p1 := float64(s1) / float64(n1)
	p2 := float64(s2) / float64(n2)
	pooled := float64(s1+s2) / float64(n1+n2)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2)))
	var z float64
	if se > 0 {
		z = (p2 - p1) / se
	}
	pValue := 2 * (1 - normalCDF(math.Abs(z)))

	return TestResult{
		Kind:       TestTwoProportion,
		Statistic:  z,
		PValue:     pValue,
		EffectSize: CohensH(p1, p2),
		EffectName: "cohens_h",
	}, nil
}

// CohensH is the effect size for a difference between two proportions.
func CohensH(p1, p2 float64) float64 {
	return 2*math.Asin(math.Sqrt(p2)) - 2*math.Asin(math.Sqrt(p1))
}

// OddsRatio computes the odds ratio of treatment success over baseline
// success with the Haldane-Anscombe 0.5 correction for empty cells.
func OddsRatio(s1, n1, s2, n2 int) float64 {
	a := float64(s2)
	b := float64(n2 - s2)
	c := float64(s1)
	d := float64(n1 - s1)
	if a == 0 || b == 0 || c == 0 || d == 0 {
		a += 0.5
		b += 0.5
		c += 0.5
		d += 0.5
	}
	return (a / b) / (c / d)
}

// WelchTTest compares two sample means without assuming equal variances.
// Degrees of freedom follow the Welch-Satterthwaite approximation.
func WelchTTest(xs, ys []float64) (TestResult, error) {
	if len(xs) < 2 || len(ys) < 2 {
		return TestResult{}, fmt.Errorf("welch t-test requires at least two observations per group")
	}
	mx, my := Mean(xs), Mean(ys)
	sx, sy := StdDev(xs), StdDev(ys)
	nx, ny := float64(len(xs)), float64(len(ys))

	vx := sx * sx / nx
	vy := sy * sy / ny
	se := math.Sqrt(vx + vy)
	if se == 0 {
		return TestResult{Kind: TestWelchT, Statistic: 0, PValue: 1, EffectSize: 0, EffectName: "cohens_d"}, nil
	}
	t := (my - mx) / se
	df := (vx + vy) * (vx + vy) / (vx*vx/(nx-1) + vy*vy/(ny-1))
	pValue := 2 * (1 - studentTCDF(math.Abs(t), df))

	return TestResult{
		Kind:       TestWelchT,
		Statistic:  t,
		PValue:     pValue,
		EffectSize: CohensD(xs, ys).D,
		EffectName: "cohens_d",
	}, nil
}

// studentTCDF evaluates the Student-t CDF at t with df degrees of freedom
// via the regularized incomplete beta function.
func studentTCDF(t, df float64) float64 {
	x := df / (df + t*t)
	p := 0.5 * regularizedIncompleteBeta(df/2, 0.5, x)
	if t > 0 {
		return 1 - p
	}
	return p
}

// regularizedIncompleteBeta computes I_x(a, b) using the continued fraction
// expansion from Numerical Recipes.
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lnBeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lnBeta + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-30
	)
	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d
	for m := 1; m <= maxIterations; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < epsilon {
			break
		}
	}
	return h
}

// MannWhitneyU performs the two-sided Mann-Whitney rank-sum test with the
// normal approximation and tie correction.
func MannWhitneyU(xs, ys []float64) (TestResult, error) {
	n1, n2 := len(xs), len(ys)
	if n1 == 0 || n2 == 0 {
		return TestResult{}, fmt.Errorf("mann-whitney test requires nonempty samples")
	}

	type obs struct {
		value float64
		group int
	}
	all := make([]obs, 0, n1+n2)
	for _, x := range xs {
		all = append(all, obs{value: x, group: 0})
	}
	for _, y := range ys {
		all = append(all, obs{value: y, group: 1})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].value < all[j].value })

	// Midranks for ties, and the tie correction term sum(t^3 - t).
	ranks := make([]float64, len(all))
	tieTerm := 0.0
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].value == all[i].value {
			j++
		}
		mid := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = mid
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	r1 := 0.0
	for i, o := range all {
		if o.group == 0 {
			r1 += ranks[i]
		}
	}
	fn1, fn2 := float64(n1), float64(n2)
	u1 := r1 - fn1*(fn1+1)/2
	u2 := fn1*fn2 - u1
	u := math.Min(u1, u2)

	mu := fn1 * fn2 / 2
	n := fn1 + fn2
	sigma2 := fn1 * fn2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if sigma2 <= 0 {
		return TestResult{Kind: TestMannWhitney, Statistic: u, PValue: 1, EffectName: "rank_biserial"}, nil
	}
	z := (u - mu) / math.Sqrt(sigma2)
	pValue := 2 * normalCDF(z) // u <= mu so z <= 0
	if pValue > 1 {
		pValue = 1
	}

	// Rank-biserial correlation as the matching effect size.
	rb := 1 - 2*u1/(fn1*fn2)
	return TestResult{
		Kind:       TestMannWhitney,
		Statistic:  u,
		PValue:     pValue,
		EffectSize: rb,
		EffectName: "rank_biserial",
	}, nil
}

// CohensD computes the standardized mean difference with pooled standard
// deviation, its approximate 95% interval, and the conventional band.
func CohensD(xs, ys []float64) EffectSize {
	n1, n2 := float64(len(xs)), float64(len(ys))
	if n1 < 2 || n2 < 2 {
		return EffectSize{Interpretation: "undefined"}
	}
	s1, s2 := StdDev(xs), StdDev(ys)
	pooled := math.Sqrt(((n1-1)*s1*s1 + (n2-1)*s2*s2) / (n1 + n2 - 2))
	if pooled == 0 {
		return EffectSize{Interpretation: interpretD(0)}
	}
	d := (Mean(ys) - Mean(xs)) / pooled

	se := math.Sqrt((n1+n2)/(n1*n2) + d*d/(2*(n1+n2)))
	const z = 1.959963984540054
	return EffectSize{
		D:              d,
		CILow:          d - z*se,
		CIHigh:         d + z*se,
		Interpretation: interpretD(d),
	}
}

func interpretD(d float64) string {
	abs := math.Abs(d)
	switch {
	case abs < 0.2:
		return "negligible"
	case abs < 0.5:
		return "small"
	case abs < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BonferroniCorrect scales p-values by the family size, capped at 1.
func BonferroniCorrect(pValues []float64) []float64 {
	m := float64(len(pValues))
	out := make([]float64, len(pValues))
	for i, p := range pValues {
		out[i] = math.Min(1, p*m)
	}
	return out
}

// BenjaminiHochberg returns FDR-adjusted p-values using the step-up
// procedure. Output order matches input order.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return pValues[order[i]] < pValues[order[j]] })

	adjusted := make([]float64, m)
	prev := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		idx := order[rank]
		adj := pValues[idx] * float64(m) / float64(rank+1)
		if adj > prev {
			adj = prev
		}
		prev = adj
		adjusted[idx] = math.Min(1, adj)
	}
	return adjusted
}

// SummarizeCondition aggregates trial records into one condition summary.
func SummarizeCondition(condition string, records []model.TrialRecord) ConditionSummary {
	summary := ConditionSummary{Condition: condition, Trials: len(records)}
	successes := 0
	generations := make([]float64, 0, len(records))
	scores := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.ErrorCode != "" {
			summary.Failures++
			continue
		}
		if rec.Success {
			successes++
		}
		generations = append(generations, float64(rec.Generations))
		scores = append(scores, rec.Final.Score)
	}
	summary.SuccessRate = WilsonInterval(successes, len(records))
	summary.MeanGenerations = Mean(generations)
	summary.StdGenerations = StdDev(generations)
	summary.MeanBestScore = Mean(scores)
	summary.StdBestScore = StdDev(scores)
	return summary
}

// Summarize compares a baseline condition against a treatment condition for
// one domain using the declared test kind.
func Summarize(domain string, baseline, treatment []model.TrialRecord, kind TestKind) (Comparison, error) {
	if len(baseline) == 0 || len(treatment) == 0 {
		return Comparison{}, fmt.Errorf("comparison requires records for both conditions")
	}
	baseCond := conditionName(baseline)
	treatCond := conditionName(treatment)

	cmp := Comparison{
		Domain:    domain,
		Baseline:  SummarizeCondition(baseCond, baseline),
		Treatment: SummarizeCondition(treatCond, treatment),
	}

	baseGens := successGenerations(baseline)
	treatGens := successGenerations(treatment)

	var (
		test TestResult
		err  error
	)
	switch kind {
	case TestTwoProportion:
		test, err = TwoProportionZTest(
			cmp.Baseline.SuccessRate.Successes, cmp.Baseline.SuccessRate.Total,
			cmp.Treatment.SuccessRate.Successes, cmp.Treatment.SuccessRate.Total,
		)
	case TestWelchT:
		test, err = WelchTTest(baseGens, treatGens)
	case TestMannWhitney:
		test, err = MannWhitneyU(baseGens, treatGens)
	default:
		err = fmt.Errorf("unknown test kind: %s", kind)
	}
	if err != nil {
		return Comparison{}, err
	}
	cmp.Test = test
	cmp.Effect = CohensD(baseGens, treatGens)
	cmp.OddsRatio = OddsRatio(
		cmp.Baseline.SuccessRate.Successes, cmp.Baseline.SuccessRate.Total,
		cmp.Treatment.SuccessRate.Successes, cmp.Treatment.SuccessRate.Total,
	)
	if cmp.Baseline.SuccessRate.Value > 0 {
		cmp.ImprovementPct = 100 * (cmp.Treatment.SuccessRate.Value - cmp.Baseline.SuccessRate.Value) / cmp.Baseline.SuccessRate.Value
	}
	return cmp, nil
}

func conditionName(records []model.TrialRecord) string {
	if len(records) == 0 {
		return ""
	}
	return records[0].Condition
}

// successGenerations collects generation counts for successful trials. Tests
// on convergence speed only make sense over runs that converged.
func successGenerations(records []model.TrialRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.Success {
			out = append(out, float64(rec.Generations))
		}
	}
	return out
}
