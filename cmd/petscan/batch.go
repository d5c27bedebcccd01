package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/internal/async"
	"github.com/joseph-ayodele/petfood-scanner/internal/ingest"
	"github.com/joseph-ayodele/petfood-scanner/internal/logger"
	"github.com/joseph-ayodele/petfood-scanner/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Parse every label file under a directory into the catalog",
	Long: `Walk a directory, queue each distinct label file (.txt or image) and run it
through the label pipeline: OCR, parsing, quality scoring and a catalog
upsert. Files named after a barcode (0123456789012.jpg) are stored under it.
Identical files are processed once.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Int("workers", 2, "concurrent pipeline workers")
	batchCmd.Flags().Bool("hidden", false, "include hidden files and directories")
	batchCmd.Flags().Duration("job-timeout", 2*time.Minute, "time limit per label")
}

type batchSummary struct {
	parsed, review, failed, empty int
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	workers, _ := cmd.Flags().GetInt("workers")
	hidden, _ := cmd.Flags().GetBool("hidden")
	jobTimeout, _ := cmd.Flags().GetDuration("job-timeout")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	results := make(chan async.Result, workers)
	q := async.NewLabelQueue(a.Processor, logger.WithComponent(a.Logger, "queue"),
		async.WithWorkers(workers),
		async.WithProcessTimeout(jobTimeout),
		async.WithResults(results),
	)

	var (
		sum batchSummary
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range results {
			switch {
			case errors.Is(r.Err, pipeline.ErrNoNutrition):
				sum.empty++
				fmt.Fprintf(cmd.ErrOrStderr(), "no nutrition data: %s\n", r.Job.Path)
			case r.Err != nil:
				sum.failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", r.Job.Path, r.Err)
			case r.Label.NeedsReview:
				sum.review++
				sum.parsed++
			default:
				sum.parsed++
			}
		}
	}()

	ing := ingest.NewFSIngestor(q, logger.WithComponent(a.Logger, "ingest"))
	_, stats, walkErr := ing.IngestDirectory(ctx, args[0], !hidden)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), jobTimeout*time.Duration(stats.Succeeded+1))
	defer cancel()
	q.Shutdown(shutdownCtx)
	close(results)
	wg.Wait()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %s entries, %s label files (%s duplicates)\n",
		humanize.Comma(int64(stats.Scanned)), humanize.Comma(int64(stats.Matched)), humanize.Comma(int64(stats.Deduplicated)))
	fmt.Fprintf(out, "parsed %d (%d need review), no data %d, failed %d in %s\n",
		sum.parsed, sum.review, sum.empty, sum.failed+int(stats.Failed), time.Since(start).Round(time.Millisecond))
	return walkErr
}
