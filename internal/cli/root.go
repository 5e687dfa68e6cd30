// Package cli implements supplierctl, the operator command line for running
// the server and checking submissions offline.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	out        io.Writer
	errOut     io.Writer
}

// NewRootCommand builds the supplierctl command tree writing to out and
// errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "supplierctl",
		Short:         "Supplier onboarding workflow tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("SUPPLIERFLOW_CONFIG"), "path to a YAML config file")

	root.AddCommand(
		newServeCommand(opts),
		newCheckCommand(opts),
		newMatchCommand(opts),
		newRoutesCommand(opts),
	)
	return root
}

// Execute runs the command line against args and returns the process exit
// code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if code, ok := IsExitError(err); ok {
		return code
	}
	fmt.Fprintln(os.Stderr, failStyle.Render("error:"), err)
	return 1
}
