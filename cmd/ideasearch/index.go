package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/ideasearch/internal/domain/batch"
	batchuc "github.com/kailas-cloud/ideasearch/internal/usecase/batch"
)

func newIndexCmd(g *globals) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index idea records from a CSV export",
		Long: `Reads a CSV export of ideas, embeds each batch with the store's vector provider
and upserts the records. Rows that fail validation are reported and skipped.

Examples:
  ideasearch index --file ideas.csv
  cat ideas.csv | ideasearch index --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, closeIn, err := openInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := buildApp(ctx, &g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.close()

			return runIndex(ctx, a, in, cmd.OutOrStdout(), g.logger)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to index, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runIndex(ctx context.Context, a *app, in io.Reader, out io.Writer, logger *zap.Logger) error {
	rows, err := batchuc.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	results, summary, err := a.batch.Index(ctx, rows)
	for _, r := range results {
		if r.Status() == dombatch.StatusSkipped {
			fmt.Fprintf(out, "line %d: skipped %q: %v\n", r.Line(), r.ID(), r.Err())
		}
	}
	fmt.Fprintf(out, "indexed %d, skipped %d, batches %d\n", summary.Indexed, summary.Skipped, summary.Batches)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	total, err := a.repo.Count(ctx)
	if err != nil {
		logger.Warn("count ideas", zap.Error(err))
		return nil
	}
	fmt.Fprintf(out, "store holds %d ideas\n", total)
	return nil
}
