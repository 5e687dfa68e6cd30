package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"supplierflow/internal/completeness"
	"supplierflow/internal/submission/models"
)

func newCheckCommand(opts *options) *cobra.Command {
	var rawScope string
	cmd := &cobra.Command{
		Use:   "check <snapshot.json>",
		Short: "List the requirements a submission snapshot is missing",
		Long: `Check a submission snapshot (as returned by GET /submissions/{id})
against the completeness rules. Use "-" to read the snapshot from stdin.

Exits 1 when anything is missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := completeness.ParseScope(rawScope)
			if err != nil {
				return err
			}
			sub, err := readSnapshot(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			missing := completeness.Validate(scope, sub.RequesterFields, sub.Documents)
			if missing.Empty() {
				fmt.Fprintf(opts.out, "%s %s\n", okStyle.Render("complete"), scope.Title())
				return nil
			}
			printMissing(opts.out, scope, missing)
			return NewExitError(1)
		},
	}
	cmd.Flags().StringVar(&rawScope, "scope", "all", `section to check ("all" or 1-7)`)
	return cmd
}

func readSnapshot(stdin io.Reader, path string) (*models.Submission, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}
	var sub models.Submission
	if err := json.NewDecoder(r).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sub, nil
}

func printMissing(w io.Writer, scope completeness.Scope, missing completeness.Missing) {
	fmt.Fprintf(w, "%s %s: %d missing\n", failStyle.Render("incomplete"), scope.Title(), len(missing))
	grouped := missing.BySection()
	for _, sec := range completeness.Sections {
		reqs := grouped[sec]
		if len(reqs) == 0 {
			continue
		}
		fmt.Fprintln(w, headingStyle.Render(sec.Title()))
		for _, r := range reqs {
			fmt.Fprintf(w, "  - %s %s\n", r.Description, mutedStyle.Render("("+r.Field+")"))
		}
	}
}
