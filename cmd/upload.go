// Handles the "resup upload" command: the batch step that runs after a
// simulation and pushes everything matching the search pattern.
package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var uploadCmdConfig struct {
	caseMetadata string
	search       string
	threads      int
	mode         string
	register     bool
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Index result files and upload them to the store",
	Long: `Index every data/metadata file pair matching the search pattern into the
case and upload them. Upload problems are reported per file and in the
summary; they deliberately do not fail this command, so the surrounding
workflow keeps running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadCmdConfig.mode != "" {
			mgr.Cfg.Set("upload.mode", uploadCmdConfig.mode)
		}

		c, err := mgr.NewCase(uploadCmdConfig.caseMetadata)
		if err != nil {
			return errors.Wrap(err, "Upload command failed")
		}

		if uploadCmdConfig.register {
			if _, err := c.Register(); err != nil {
				// Reported inside Register; uploads continue and will be
				// rejected individually if the case really is missing.
				mgr.Logger.WithError(err).Warn("Continuing with unregistered case")
			}
		}

		added, err := c.AddFiles(uploadCmdConfig.search)
		if err != nil {
			return errors.Wrap(err, "Upload command failed")
		}
		mgr.Logger.Infof("Indexed %d files", added)

		threads := uploadCmdConfig.threads
		if threads == 0 {
			threads = mgr.Cfg.GetInt("upload.threads")
		}

		ok, err := c.Upload(threads)
		if err != nil {
			return errors.Wrap(err, "Upload command failed")
		}
		mgr.Logger.Infof("Uploaded %d files", len(ok))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadCmdConfig.caseMetadata, "case-metadata", "c", "", "path to the case metadata file")
	uploadCmd.Flags().StringVarP(&uploadCmdConfig.search, "search", "s", "", "glob pattern for result files")
	uploadCmd.Flags().IntVarP(&uploadCmdConfig.threads, "threads", "t", 0, "upload worker count (default from config)")
	uploadCmd.Flags().StringVar(&uploadCmdConfig.mode, "mode", "", "transfer mode, copy or move (default from config)")
	uploadCmd.Flags().BoolVar(&uploadCmdConfig.register, "register", false, "register the case before uploading")
	uploadCmd.MarkFlagRequired("case-metadata")
	uploadCmd.MarkFlagRequired("search")
}
