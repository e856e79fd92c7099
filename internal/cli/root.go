package cli

import (
	"github.com/spf13/cobra"

	"lethe/pkg/lethe"
)

var rootCmd = &cobra.Command{
	Use:   "lethectl",
	Short: "Seeded optimization trials with paradox retention",
	Long:  "lethectl runs forgetting-engine optimization trials, executes pre-registered experiment manifests, verifies reproducibility, and summarizes results.",
}

var (
	flagStore     string
	flagDBPath    string
	flagTrialsDir string
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store backend: memory|sqlite")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "lethe.db", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&flagTrialsDir, "trials-dir", "trials", "directory for trial artifacts")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(trialsCmd)
	rootCmd.AddCommand(domainsCmd)
}

// newClient builds an initialized client from the persistent flags. The
// caller owns Close.
func newClient(cmd *cobra.Command) (*lethe.Client, error) {
	client, err := lethe.New(lethe.Options{
		StoreKind: flagStore,
		DBPath:    flagDBPath,
		TrialsDir: flagTrialsDir,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
