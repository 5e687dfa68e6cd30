package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supplierflow/internal/matcher"
)

func newMatchCommand(opts *options) *cobra.Command {
	var (
		corpusPath string
		threshold  int
	)
	cmd := &cobra.Command{
		Use:   "match <name>",
		Short: "Rank corpus names similar to a supplier name",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if threshold < 0 || threshold > 100 {
				return fmt.Errorf("threshold %d must be between 0 and 100", threshold)
			}
			corpus, err := matcher.LoadNamesFile(corpusPath)
			if err != nil {
				return err
			}

			matches := matcher.FindMatches(args[0], corpus, threshold)
			if len(matches) == 0 {
				fmt.Fprintf(opts.out, "%s for %q (normalized %q)\n",
					okStyle.Render("no matches"), args[0], matcher.Normalize(args[0]))
				return nil
			}
			for i, m := range matches {
				line := fmt.Sprintf("%2d. %3d%%  %-16s %s", i+1, m.Similarity, m.Classification, m.Entry.Name)
				if m.Entry.Reference != "" {
					line += " " + mutedStyle.Render("["+m.Entry.Reference+"]")
				}
				if m.Classification == matcher.ExactMatch {
					fmt.Fprintln(opts.out, failStyle.Render(line))
				} else {
					fmt.Fprintln(opts.out, warnStyle.Render(line))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "YAML file of names to compare against")
	cmd.Flags().IntVar(&threshold, "threshold", matcher.DefaultThreshold, "minimum similarity (0-100)")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}
