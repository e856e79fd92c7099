package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lethe/pkg/lethe"
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "Inspect stored trial records",
}

var (
	trialsDomain    string
	trialsCondition string
	trialsLimit     int
	trialsSeed      int64
)

var trialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored trial records for a domain and condition",
	RunE:  runTrialsList,
}

var trialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print one trial record as JSON",
	RunE:  runTrialsShow,
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List registered domain adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()
		for _, name := range client.Domains() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	trialsListCmd.Flags().StringVar(&trialsDomain, "domain", "", "domain adapter name")
	trialsListCmd.Flags().StringVar(&trialsCondition, "condition", "forgetting_engine", "condition")
	trialsListCmd.Flags().IntVar(&trialsLimit, "limit", 50, "maximum records to list")
	_ = trialsListCmd.MarkFlagRequired("domain")

	trialsShowCmd.Flags().StringVar(&trialsDomain, "domain", "", "domain adapter name")
	trialsShowCmd.Flags().StringVar(&trialsCondition, "condition", "forgetting_engine", "condition")
	trialsShowCmd.Flags().Int64Var(&trialsSeed, "seed", 0, "trial seed")
	_ = trialsShowCmd.MarkFlagRequired("domain")

	trialsCmd.AddCommand(trialsListCmd)
	trialsCmd.AddCommand(trialsShowCmd)
}

func runTrialsList(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := client.Trials(cmd.Context(), lethe.TrialsRequest{
		Domain:    trialsDomain,
		Condition: trialsCondition,
		Limit:     trialsLimit,
	})
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Printf("seed=%d outcome=%s success=%t generations=%d digest=%s\n",
			record.Seed, record.Outcome, record.Success, record.Generations, record.Digest)
	}
	fmt.Printf("total=%d\n", len(records))
	return nil
}

func runTrialsShow(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := client.Trials(cmd.Context(), lethe.TrialsRequest{
		Domain:    trialsDomain,
		Condition: trialsCondition,
	})
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.Seed != trialsSeed {
			continue
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	return fmt.Errorf("trial record not found: %s/%s/%d", trialsDomain, trialsCondition, trialsSeed)
}
