package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lethe/pkg/lethe"
)

var (
	runManifestPath string
	runDomain       string
	runCondition    string
	runSeed         int64
	runSeedStart    int64
	runSeedEnd      int64
	runWorkers      int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single trial or a full pre-registered manifest",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runManifestPath, "manifest", "", "path to an experiment manifest (runs the whole batch)")
	runCmd.Flags().StringVar(&runDomain, "domain", "", "domain adapter name for a single trial")
	runCmd.Flags().StringVar(&runCondition, "condition", "forgetting_engine", "condition for a single trial")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "seed for a single trial")
	runCmd.Flags().Int64Var(&runSeedStart, "seed-start", 0, "first seed of an inclusive range")
	runCmd.Flags().Int64Var(&runSeedEnd, "seed-end", 0, "last seed of an inclusive range")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "concurrent trial workers for manifest runs")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runManifestPath == "" && runDomain == "" {
		return fmt.Errorf("either --manifest or --domain is required")
	}
	if runManifestPath != "" && runDomain != "" {
		return fmt.Errorf("use either --manifest or --domain, not both")
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if runManifestPath != "" {
		report, err := client.RunManifest(cmd.Context(), lethe.RunManifestRequest{
			ManifestPath: runManifestPath,
			Workers:      runWorkers,
		})
		if err != nil {
			return err
		}
		fmt.Printf("experiment=%s trials=%d successes=%d failures=%d\n",
			report.ExperimentID, report.Trials, report.Successes, report.Failures)
		return nil
	}

	if cmd.Flags().Changed("seed-start") || cmd.Flags().Changed("seed-end") {
		if cmd.Flags().Changed("seed") {
			return fmt.Errorf("use either --seed or --seed-start/--seed-end, not both")
		}
		records, err := client.RunSeedRange(cmd.Context(), lethe.SeedRangeRequest{
			Domain:    runDomain,
			Condition: runCondition,
			SeedStart: runSeedStart,
			SeedEnd:   runSeedEnd,
			Persist:   true,
		})
		if err != nil {
			return err
		}
		successes := 0
		for _, record := range records {
			fmt.Printf("trial=%s outcome=%s success=%t generations=%d digest=%s\n",
				record.Key(), record.Outcome, record.Success, record.Generations, record.Digest)
			if record.Success {
				successes++
			}
		}
		fmt.Printf("trials=%d successes=%d\n", len(records), successes)
		return nil
	}

	record, err := client.RunTrial(cmd.Context(), lethe.TrialRequest{
		Domain:    runDomain,
		Condition: runCondition,
		Seed:      runSeed,
		Persist:   true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("trial=%s outcome=%s success=%t generations=%d digest=%s\n",
		record.Key(), record.Outcome, record.Success, record.Generations, record.Digest)
	if record.ErrorCode == "" {
		fmt.Printf("final solution=%s score=%.6f\n", record.Final.Solution, record.Final.Score)
	}
	return nil
}
