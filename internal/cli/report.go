package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lethe/pkg/lethe"
)

var (
	reportDomains   []string
	reportBaseline  string
	reportTreatment string
	reportTest      string
	reportAlpha     float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a cross-domain comparison with multiple-testing correction",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportDomains, "domains", nil, "domain adapter names")
	reportCmd.Flags().StringVar(&reportBaseline, "baseline", "random_search", "baseline condition")
	reportCmd.Flags().StringVar(&reportTreatment, "treatment", "forgetting_engine", "treatment condition")
	reportCmd.Flags().StringVar(&reportTest, "test", "two_proportion", "test kind: two_proportion|welch_t|mann_whitney")
	reportCmd.Flags().Float64Var(&reportAlpha, "alpha", 0.05, "significance level")
	_ = reportCmd.MarkFlagRequired("domains")
}

func runReport(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := client.Report(cmd.Context(), lethe.ReportRequest{
		Domains:   reportDomains,
		Baseline:  reportBaseline,
		Treatment: reportTreatment,
		Test:      reportTest,
		Alpha:     reportAlpha,
		Persist:   true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("baseline=%s treatment=%s test=%s alpha=%.3f\n",
		report.Baseline, report.Treatment, report.Test, report.Alpha)
	for _, dc := range report.Domains {
		fmt.Printf("domain=%s p=%.6f p_bonferroni=%.6f p_bh=%.6f significant=%t\n",
			dc.Domain, dc.Test.PValue, dc.PValueBonferroni, dc.PValueBH, dc.Significant)
	}
	fmt.Printf("significant=%d/%d\n", report.SignificantCount, len(report.Domains))
	return nil
}
