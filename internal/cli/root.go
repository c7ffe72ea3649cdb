package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/config"
)

// options shared by every subcommand.
type rootOptions struct {
	logLevel string
	cfg      config.Config
	log      *slog.Logger
}

// NewRootCommand builds the docsplit command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "docsplit",
		Short: "Split .docx documents into retrieval nodes",
		Long: `docsplit cuts Word documents into nodes for a retrieval index, either at
heading boundaries or into size-bounded chunks.

Example usage:
  docsplit split guide.docx                        # Split by Heading 3 then Heading 2
  docsplit split --mode size --size 512 docs/      # Chunk every .docx under docs/
  docsplit classify "Heading 2" Normal             # Show how styles are read`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			switch {
			case cmd.Flags().Changed("log-level"):
				cfg.LogLevel = opts.logLevel
			case os.Getenv("LOG_LEVEL") == "":
				// Keep per-file split logs out of the progress bar.
				cfg.LogLevel = "warn"
			}
			opts.cfg = cfg
			opts.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newSplitCommand(opts))
	root.AddCommand(newClassifyCommand(opts))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
