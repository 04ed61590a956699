// Command noderepo-inspect dumps a bundle's decoded fields, verifies
// its round-trip, and walks a tree through the hierarchy manager by
// path. Generalized from the teacher's cmd/dump_hdf5 (hex-dump a file
// offset) to "decode and print a node bundle" / "resolve a path",
// against the spf13/cobra CLI idiom the rest of the example pack uses
// rather than the teacher's own stdlib flag package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corewell/noderepo/internal/rlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging installs the module-wide zap logger once -v/--verbose
// has been parsed, as a cobra PersistentPreRunE so every subcommand's
// store/bundle calls observe the right level.
func initLogging(*cobra.Command, []string) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	rlog.Set(logger)
	return nil
}
