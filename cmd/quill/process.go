package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/quillaudit/quill/internal/cli"
	"github.com/quillaudit/quill/internal/engine"
)

func processCmd() *cobra.Command {
	var (
		concurrency int
		hardTimeout time.Duration
		documentID  string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run pending documents through the adjustment pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			generator, err := createGenerator()
			if err != nil {
				return fmt.Errorf("failed to create LLM client: %w", err)
			}
			defer func() { _ = generator.Close() }()

			pipe := newPipeline(generator)

			cfg := engine.DefaultConfig()
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}
			if hardTimeout > 0 {
				cfg.HardTimeout = hardTimeout
			}

			eng := engine.NewWithConfig(store, pipe, generator.Model(), slog.Default(), cfg)

			if documentID != "" {
				if err := eng.ProcessDocument(ctx, documentID); err != nil {
					return fmt.Errorf("failed to reprocess document: %w", err)
				}
				fmt.Println(cli.FormatSuccess("Document reprocessed: " + documentID))
				return nil
			}

			var bar *progressbar.ProgressBar
			eng.SetProgressFunc(func(completed, total int) {
				if bar == nil {
					bar = newProcessBar(total)
				}
				_ = bar.Set(completed)
			})

			stats, err := eng.ProcessPending(ctx)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			fmt.Println()
			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Processed %d document(s), %d failed, %d adjustment(s) created in %s",
				stats.DocumentsProcessed,
				stats.DocumentsFailed,
				stats.AdjustmentsCreated,
				stats.Duration.Round(time.Millisecond))))
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "documents to process in parallel (default 3)")
	cmd.Flags().DurationVar(&hardTimeout, "timeout", 0, "hard per-document timeout (default 10m)")
	cmd.Flags().StringVar(&documentID, "document", "", "reprocess a single document by ID")
	return cmd
}

func newProcessBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Analyzing documents...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
