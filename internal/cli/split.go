package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/store"
)

// Output formats.
const (
	OutJSON  = "json"
	OutJSONL = "jsonl"
)

type splitFlags struct {
	mode         string
	headingTypes []string
	size         int
	idStrategy   string
	includes     []string
	concurrency  int
	storePath    string
	out          string
}

func newSplitCommand(root *rootOptions) *cobra.Command {
	f := &splitFlags{}
	cmd := &cobra.Command{
		Use:   "split [paths...]",
		Short: "Split documents into nodes",
		Long: `Split one or more .docx files into nodes and print them as JSON.
Directories are searched with the --include globs.

Examples:
  docsplit split guide.docx
  docsplit split --heading-types "Heading 1" --out jsonl manuals/
  docsplit split --mode size --size 512 --store nodes.db docs/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, root, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.mode, "mode", "", "split mode: heading or size (default from config)")
	flags.StringSliceVar(&f.headingTypes, "heading-types", nil, "heading styles to cut at, in pass order")
	flags.IntVar(&f.size, "size", 0, "chunk size in characters for size mode")
	flags.StringVar(&f.idStrategy, "id", "", "node id strategy: hash, uuid or sequence")
	flags.StringSliceVar(&f.includes, "include", DefaultIncludes, "glob patterns for files inside directories")
	flags.IntVar(&f.concurrency, "concurrency", runtime.NumCPU(), "documents split in parallel")
	flags.StringVar(&f.storePath, "store", "", "persist results to this bbolt file")
	flags.StringVar(&f.out, "out", OutJSON, "output format: json or jsonl")
	return cmd
}

func (f *splitFlags) options(cfg config.Config) (pipeline.SplitOptions, error) {
	opts := pipeline.SplitOptions{
		Mode:         f.mode,
		HeadingTypes: f.headingTypes,
		Size:         f.size,
		IDStrategy:   f.idStrategy,
	}.WithDefaults(cfg)
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if f.out != OutJSON && f.out != OutJSONL {
		return opts, fmt.Errorf("unknown output format: %q", f.out)
	}
	return opts, nil
}

func runSplit(cmd *cobra.Command, root *rootOptions, f *splitFlags, args []string) error {
	opts, err := f.options(root.cfg)
	if err != nil {
		return err
	}
	files, err := collectFiles(args, f.includes)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents matched %v", f.includes)
	}

	var bar *progressbar.ProgressBar
	if len(files) > 1 {
		bar = newProgressBar(cmd.ErrOrStderr(), len(files))
	}

	results, err := splitFiles(cmd.Context(), root, files, opts, f.concurrency, bar)
	if err != nil {
		return err
	}

	if f.storePath != "" {
		if err := persist(f.storePath, results); err != nil {
			return err
		}
		root.log.Info("stored documents", "store", f.storePath, "documents", len(results))
	}
	return writeResults(cmd.OutOrStdout(), f.out, results)
}

// splitFiles splits every file with bounded parallelism. Results keep the
// order of files; the first failure cancels the rest.
func splitFiles(ctx context.Context, root *rootOptions, files []string, opts pipeline.SplitOptions, concurrency int, bar *progressbar.ProgressBar) ([]*pipeline.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]*pipeline.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			res, err := pipeline.SplitDocument(uuid.NewString(), path, data, opts, root.log)
			if err != nil {
				return err
			}
			results[i] = res
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Splitting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func persist(path string, results []*pipeline.Result) error {
	st, err := store.NewBoltStore(path)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	for _, res := range results {
		if err := st.SaveDocument(res.Document(now), res.Nodes); err != nil {
			return fmt.Errorf("store %s: %w", res.Filename, err)
		}
	}
	return nil
}

// writeResults prints one JSON array of documents, or one node per line for
// jsonl.
func writeResults(w io.Writer, format string, results []*pipeline.Result) error {
	enc := json.NewEncoder(w)
	if format == OutJSONL {
		for _, res := range results {
			for _, n := range res.Nodes {
				if err := enc.Encode(n); err != nil {
					return err
				}
			}
		}
		return nil
	}

	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
