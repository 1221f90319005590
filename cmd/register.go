// Handles the "resup register" command.
package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var registerCmdConfig struct {
	caseMetadata string
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create the case container on the store",
	Long: `Register the case described by the case metadata file. Registering an
already-registered case overwrites it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := mgr.NewCase(registerCmdConfig.caseMetadata)
		if err != nil {
			return errors.Wrap(err, "Register command failed")
		}

		parentID, err := c.Register()
		if err != nil {
			return errors.Wrap(err, "Register command failed")
		}
		mgr.Logger.Infof("Case registered with id %s", parentID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringVarP(&registerCmdConfig.caseMetadata, "case-metadata", "c", "", "path to the case metadata file")
	registerCmd.MarkFlagRequired("case-metadata")
}
