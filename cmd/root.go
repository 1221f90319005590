// Root of command-line argument parsing.
package cmd

import (
	"fmt"
	"os"

	"github.com/simres/resup/pkg/resupmgr"
	"github.com/spf13/cobra"
)

var cfgFile string

var mgr *resupmgr.Manager

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "resup",
	Short: "Upload simulation results to the store",
	Long: `resup pushes simulation-result files and their sidecar metadata to the
remote object-and-blob store, either as a batch step after a disk-based
simulation or from a hosted compute job.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mgrArgs := map[string]interface{}{}
		if cfgFile != "" {
			mgrArgs["config-file"] = cfgFile
		}

		var err error
		mgr, err = resupmgr.NewManager(mgrArgs)
		if err != nil {
			return fmt.Errorf("failed to initialize resup manager: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if mgr == nil || mgr.Logger == nil {
			fmt.Printf("%v\n", err)
		} else {
			mgr.Logger.Error(err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/resup.yaml)")
}
