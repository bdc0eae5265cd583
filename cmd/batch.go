// -- cmd/batch.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v0idlock/civreport-cli/internal/observability"
	"github.com/v0idlock/civreport-cli/pkg/geocode"
	"github.com/v0idlock/civreport-cli/pkg/open311"
	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
)

// newBatchCmd creates the `batch` command: submit a file of reports through
// the Open311 API concurrently. Browser submission is deliberately serial
// and excluded here; run `submit --method browser` per report instead.
func newBatchCmd() *cobra.Command {
	var (
		flagFile        string
		flagConcurrency int
		flagMethod      string
	)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit a JSON file of damage reports via the Open311 API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if flagMethod != "api" {
				return fmt.Errorf("batch only supports --method api")
			}

			data, err := os.ReadFile(flagFile)
			if err != nil {
				return fmt.Errorf("reading batch file: %w", err)
			}
			var reports []*report.Report
			if err := json.Unmarshal(data, &reports); err != nil {
				return fmt.Errorf("decoding batch file: %w", err)
			}
			if len(reports) == 0 {
				return fmt.Errorf("batch file contains no reports")
			}

			writer, err := results.NewJSONWriter(cfg.Output.Dir, logger)
			if err != nil {
				return err
			}

			// Shared clients so the rate limiters actually limit across
			// workers. Nominatim in particular allows 1 req/s total, not
			// per goroutine.
			apiClient := open311.New(cfg.Open311, logger)
			gc := geocode.New(cfg.Geocoder, logger)

			var (
				mu        sync.Mutex
				succeeded int
				failed    int
			)

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(flagConcurrency)

			for _, rep := range reports {
				rep := rep
				g.Go(func() error {
					if rep.Type != "" {
						rep.Type = report.ParseDamageType(string(rep.Type))
					}
					if rep.ID == "" {
						fresh := report.New(rep.Type, rep.Description, rep.Latitude, rep.Longitude)
						fresh.Address = rep.Address
						fresh.City = rep.City
						fresh.State = rep.State
						fresh.ImagePath = rep.ImagePath
						fresh.Severity = rep.Severity
						fresh.Contact = rep.Contact
						*rep = *fresh
					}
					if err := rep.Validate(); err != nil {
						logger.Error("Skipping invalid report", zap.String("report_id", rep.ID), zap.Error(err))
						mu.Lock()
						failed++
						mu.Unlock()
						return nil
					}
					if rep.Address == "" {
						resolveAddress(gctx, gc, rep, logger)
					}

					env := batchSubmitOne(gctx, apiClient, rep, logger)
					if _, err := writer.Write(env); err != nil {
						logger.Error("Writing result log failed", zap.String("report_id", rep.ID), zap.Error(err))
					}

					mu.Lock()
					if env.Success {
						succeeded++
					} else {
						failed++
					}
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			logger.Info("Batch complete",
				zap.Int("total", len(reports)),
				zap.Int("succeeded", succeeded),
				zap.Int("failed", failed),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "batch: %d submitted, %d failed (of %d)\n", succeeded, failed, len(reports))
			if failed > 0 {
				return fmt.Errorf("%d of %d submissions failed", failed, len(reports))
			}
			return nil
		},
	}

	batchCmd.Flags().StringVar(&flagFile, "file", "", "JSON file containing an array of reports")
	batchCmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "maximum concurrent submissions")
	batchCmd.Flags().StringVar(&flagMethod, "method", "api", "submission method (only api is supported)")
	_ = batchCmd.MarkFlagRequired("file")

	return batchCmd
}

// batchSubmitOne submits a single report and always returns an envelope,
// degrading to a fallback tracking number on API failure.
func batchSubmitOne(ctx context.Context, client *open311.Client, rep *report.Report, logger *zap.Logger) *results.SubmissionEnvelope {
	env := newEnvelope(rep, results.MethodAPI)

	sr, err := client.Submit(ctx, rep)
	env.FinishedAt = time.Now().UTC()
	if err != nil {
		logger.Error("Open311 submission failed",
			zap.String("report_id", rep.ID),
			zap.Error(err))
		env.Method = results.MethodFallback
		env.TrackingNumber = report.FallbackTrackingNumber(rep.ID)
		env.Error = err.Error()
		return env
	}

	env.Success = true
	env.TrackingNumber = sr.ID
	env.Address = rep.Address
	logger.Info("Report submitted",
		zap.String("report_id", rep.ID),
		zap.String("tracking_number", sr.ID))
	return env
}
