package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lethe/pkg/lethe"
)

var (
	summarizeDomain    string
	summarizeBaseline  string
	summarizeTreatment string
	summarizeTest      string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Compare two stored conditions statistically",
	RunE:  runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeDomain, "domain", "", "domain adapter name")
	summarizeCmd.Flags().StringVar(&summarizeBaseline, "baseline", "random_search", "baseline condition")
	summarizeCmd.Flags().StringVar(&summarizeTreatment, "treatment", "forgetting_engine", "treatment condition")
	summarizeCmd.Flags().StringVar(&summarizeTest, "test", "two_proportion", "test kind: two_proportion|welch_t|mann_whitney")
	_ = summarizeCmd.MarkFlagRequired("domain")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	cmp, err := client.Summarize(cmd.Context(), lethe.SummarizeRequest{
		Domain:    summarizeDomain,
		Baseline:  summarizeBaseline,
		Treatment: summarizeTreatment,
		Test:      summarizeTest,
		Persist:   true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("domain=%s baseline=%s treatment=%s\n", cmp.Domain, cmp.Baseline.Condition, cmp.Treatment.Condition)
	fmt.Printf("baseline success=%d/%d (%.3f, 95%% CI [%.3f, %.3f])\n",
		cmp.Baseline.SuccessRate.Successes, cmp.Baseline.SuccessRate.Total,
		cmp.Baseline.SuccessRate.Value, cmp.Baseline.SuccessRate.CILow, cmp.Baseline.SuccessRate.CIHigh)
	fmt.Printf("treatment success=%d/%d (%.3f, 95%% CI [%.3f, %.3f])\n",
		cmp.Treatment.SuccessRate.Successes, cmp.Treatment.SuccessRate.Total,
		cmp.Treatment.SuccessRate.Value, cmp.Treatment.SuccessRate.CILow, cmp.Treatment.SuccessRate.CIHigh)
	fmt.Printf("test=%s statistic=%.4f p=%.6f %s=%.4f\n",
		cmp.Test.Kind, cmp.Test.Statistic, cmp.Test.PValue, cmp.Test.EffectName, cmp.Test.EffectSize)
	fmt.Printf("cohens_d=%.4f (95%% CI [%.4f, %.4f], %s) odds_ratio=%.4f improvement=%.1f%%\n",
		cmp.Effect.D, cmp.Effect.CILow, cmp.Effect.CIHigh, cmp.Effect.Interpretation,
		cmp.OddsRatio, cmp.ImprovementPct)
	return nil
}
