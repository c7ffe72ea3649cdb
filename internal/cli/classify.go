package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/document"
)

func newClassifyCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify STYLE...",
		Short: "Show how paragraph style names are classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, name := range args {
				style, err := document.Classify(name)
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(out, "%q\terror: %v\n", name, err)
				case style.IsHeading():
					fmt.Fprintf(out, "%q\t%s\tlevel %d\t%s\n", name, style.Kind, style.Level, style.MarkdownPrefix())
				default:
					fmt.Fprintf(out, "%q\t%s\n", name, style.Kind)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d styles could not be classified", failed, len(args))
			}
			return nil
		},
	}
}
