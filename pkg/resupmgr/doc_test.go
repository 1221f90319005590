package resupmgr

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func Example() {
	mgrArgs := map[string]interface{}{}
	// ./resup.yaml is a resup configuration that's been setup for your environment
	mgrArgs["config-file"] = "./resup.yaml"

	// Adding a custom logger is optional
	resupLogger := logrus.New()
	resupLogger.SetLevel(logrus.WarnLevel)
	mgrArgs["logger"] = resupLogger

	mgr, err := NewManager(mgrArgs)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	// ./share/metadata/fmu_case.yml is the case metadata produced by the
	// simulation workflow
	c, err := mgr.NewCase("./share/metadata/fmu_case.yml")
	if err != nil {
		fmt.Printf("Failed to build the case: %v\n", err)
		os.Exit(1)
	}

	// Register the case on the store so uploads have a parent to nest under
	if _, err := c.Register(); err != nil {
		fmt.Printf("Registration failed: %v\n", err)
		os.Exit(1)
	}

	// Index every result file that has sidecar metadata next to it
	if _, err := c.AddFiles("share/results/maps/*.gri"); err != nil {
		fmt.Printf("Failed to index files: %v\n", err)
		os.Exit(1)
	}

	// Push everything with the configured worker count
	ok, err := c.Upload(mgr.Cfg.GetInt("upload.threads"))
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Uploaded %d files\n", len(ok))
}
