// Command resup pushes simulation-result files and their sidecar metadata to
// a remote object-and-blob store. It is meant to run as a batch step after a
// disk-based simulation, or inside a hosted compute job that hands over
// in-memory buffers instead of files.
package main

import "github.com/simres/resup/cmd"

func main() {
	cmd.Execute()
}
