package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supplierflow/internal/submission/models"
	"supplierflow/internal/workflow"
)

func newRoutesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the status transition table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, from := range models.AllStatuses {
				to := workflow.Edges[from]
				if len(to) == 0 {
					fmt.Fprintf(opts.out, "%-28s %s\n", from, mutedStyle.Render("(terminal)"))
					continue
				}
				for _, next := range to {
					fmt.Fprintf(opts.out, "%-28s -> %s\n", from, next)
				}
			}
			return nil
		},
	}
}
