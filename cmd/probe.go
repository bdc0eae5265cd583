// -- cmd/probe.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/observability"
	"github.com/v0idlock/civreport-cli/pkg/browser"
	"github.com/v0idlock/civreport-cli/pkg/probe"
	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
)

// newProbeCmd creates the `probe` command: load a page and dump an inventory
// of its interactive elements. Used to discover selectors when a city
// redesigns a form.
func newProbeCmd() *cobra.Command {
	var (
		flagURL        string
		flagType       string
		flagScreenshot bool
	)

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Inspect a form page and report its interactive elements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			url := flagURL
			if url == "" && flagType != "" {
				dt := report.ParseDamageType(flagType)
				formURL, ok := report.FormURL(dt)
				if !ok {
					return fmt.Errorf("no form URL known for damage type %q", flagType)
				}
				url = formURL
			}
			if url == "" {
				return fmt.Errorf("either --url or --type is required")
			}

			manager, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				manager.Shutdown(shutdownCtx)
			}()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			prober := probe.New(logger)
			pageReport, err := prober.Inspect(session, url)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			probeID := uuid.NewString()
			path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("probe_%s.json", probeID))
			data, err := json.MarshalIndent(pageReport, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding page report: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing page report: %w", err)
			}

			if flagScreenshot {
				png, err := session.Screenshot()
				if err != nil {
					logger.Warn("Probe screenshot failed", zap.Error(err))
				} else {
					shots, err := results.NewScreenshotSink(cfg.Output.ScreenshotDir, logger)
					if err != nil {
						return err
					}
					if _, err := shots.Save(probeID, "probe", png); err != nil {
						logger.Warn("Saving probe screenshot failed", zap.Error(err))
					}
				}
			}

			logger.Info("Page inventory captured",
				zap.String("url", url),
				zap.Int("buttons", len(pageReport.Buttons)),
				zap.Int("inputs", len(pageReport.Inputs)),
				zap.Int("selects", len(pageReport.Selects)),
				zap.Int("radios", len(pageReport.Radios)),
				zap.Int("map_widgets", len(pageReport.MapWidgets)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "page report: %s\n", path)
			return nil
		},
	}

	probeCmd.Flags().StringVar(&flagURL, "url", "", "page URL to inspect")
	probeCmd.Flags().StringVar(&flagType, "type", "", "damage type whose form page should be inspected")
	probeCmd.Flags().BoolVar(&flagScreenshot, "screenshot", false, "also capture a full-page screenshot")

	return probeCmd
}
