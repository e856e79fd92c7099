package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lethe/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Create, verify, and inspect experiment manifests",
}

var (
	manifestOut        string
	manifestID         string
	manifestDomain     string
	manifestConditions []string
	manifestSeedStart  int64
	manifestSeedEnd    int64
)

var manifestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create and seal a new experiment manifest",
	RunE:  runManifestCreate,
}

var manifestVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Check a manifest's protocol hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestVerify,
}

var manifestShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a manifest's plans and trial count",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestShow,
}

func init() {
	manifestCreateCmd.Flags().StringVar(&manifestOut, "out", "manifest.yaml", "output path")
	manifestCreateCmd.Flags().StringVar(&manifestID, "id", "", "experiment id (generated when empty)")
	manifestCreateCmd.Flags().StringVar(&manifestDomain, "domain", "", "domain adapter name")
	manifestCreateCmd.Flags().StringSliceVar(&manifestConditions, "conditions", []string{"forgetting_engine", "random_search"}, "conditions to pre-register")
	manifestCreateCmd.Flags().Int64Var(&manifestSeedStart, "seed-start", 1, "first seed (inclusive)")
	manifestCreateCmd.Flags().Int64Var(&manifestSeedEnd, "seed-end", 30, "last seed (inclusive)")
	_ = manifestCreateCmd.MarkFlagRequired("domain")

	manifestCmd.AddCommand(manifestCreateCmd)
	manifestCmd.AddCommand(manifestVerifyCmd)
	manifestCmd.AddCommand(manifestShowCmd)
}

func runManifestCreate(cmd *cobra.Command, args []string) error {
	m, err := manifest.New(manifestID, []manifest.DomainPlan{{
		Domain:     manifestDomain,
		Conditions: manifestConditions,
		SeedRanges: []manifest.SeedRange{{Start: manifestSeedStart, End: manifestSeedEnd}},
	}})
	if err != nil {
		return err
	}
	if err := manifest.Write(manifestOut, m); err != nil {
		return err
	}
	fmt.Printf("manifest=%s experiment=%s trials=%d hash=%s\n", manifestOut, m.ExperimentID, m.TrialCount(), m.ProtocolHash)
	return nil
}

func runManifestVerify(cmd *cobra.Command, args []string) error {
	m, err := manifest.Read(args[0])
	if err != nil {
		return err
	}
	if err := m.Verify(); err != nil {
		return err
	}
	fmt.Printf("manifest=%s experiment=%s hash=%s ok\n", args[0], m.ExperimentID, m.ProtocolHash)
	return nil
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	m, err := manifest.Read(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("experiment=%s created=%s trials=%d hash=%s\n", m.ExperimentID, m.CreatedAtUTC, m.TrialCount(), m.ProtocolHash)
	for _, plan := range m.Plans {
		ranges := make([]string, 0, len(plan.SeedRanges))
		for _, sr := range plan.SeedRanges {
			ranges = append(ranges, fmt.Sprintf("%d-%d", sr.Start, sr.End))
		}
		fmt.Printf("  domain=%s conditions=%s seeds=%s\n", plan.Domain, strings.Join(plan.Conditions, ","), strings.Join(ranges, ","))
	}
	if err := m.Verify(); err != nil {
		fmt.Printf("  integrity: %v\n", err)
	} else {
		fmt.Printf("  integrity: ok\n")
	}
	return nil
}
