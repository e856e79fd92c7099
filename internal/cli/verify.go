package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lethe/internal/trial"
	"lethe/pkg/lethe"
)

var (
	verifyDomain    string
	verifyCondition string
	verifySeed      int64
	verifyAll       bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-execute stored trials and check reproducibility",
	Long:  "Exit code 0 on match, 1 on mismatch, 2 when verification could not run. With --all, the worst verdict across the condition's stored trials decides the exit code.",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyDomain, "domain", "", "domain adapter name")
	verifyCmd.Flags().StringVar(&verifyCondition, "condition", "forgetting_engine", "condition")
	verifyCmd.Flags().Int64Var(&verifySeed, "seed", 0, "trial seed")
	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "verify every stored trial of the condition")
	_ = verifyCmd.MarkFlagRequired("domain")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyAll && cmd.Flags().Changed("seed") {
		return fmt.Errorf("use either --seed or --all, not both")
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if verifyAll {
		reports, err := client.VerifyAll(cmd.Context(), lethe.VerifyAllRequest{
			Domain:    verifyDomain,
			Condition: verifyCondition,
		})
		if err != nil {
			return err
		}
		exit := 0
		for _, report := range reports {
			printVerifyReport(report)
			switch report.Verdict {
			case trial.VerdictMatch:
			case trial.VerdictMismatch:
				if exit < 1 {
					exit = 1
				}
			default:
				exit = 2
			}
		}
		fmt.Printf("verified=%d\n", len(reports))
		if exit != 0 {
			os.Exit(exit)
		}
		return nil
	}

	report, err := client.Verify(cmd.Context(), lethe.VerifyRequest{
		Domain:    verifyDomain,
		Condition: verifyCondition,
		Seed:      verifySeed,
	})
	if err != nil {
		return err
	}
	printVerifyReport(report)

	switch report.Verdict {
	case trial.VerdictMatch:
		return nil
	case trial.VerdictMismatch:
		os.Exit(1)
	default:
		os.Exit(2)
	}
	return nil
}

func printVerifyReport(report trial.VerifyReport) {
	fmt.Printf("trial=%s/%s/%d verdict=%s digest_valid=%t final_matches=%t trace_matches=%t\n",
		report.Domain, report.Condition, report.Seed,
		report.Verdict, report.DigestValid, report.FinalMatches, report.TraceMatches)
	if report.Reason != "" {
		fmt.Printf("reason=%s\n", report.Reason)
	}
	if report.FirstDivergence != nil {
		fmt.Printf("first_divergence generation=%d\n", report.FirstDivergence.Generation)
	}
}
