// -- cmd/submit.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/internal/observability"
	"github.com/v0idlock/civreport-cli/pkg/browser"
	"github.com/v0idlock/civreport-cli/pkg/geocode"
	"github.com/v0idlock/civreport-cli/pkg/open311"
	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
	"github.com/v0idlock/civreport-cli/pkg/store"
	"github.com/v0idlock/civreport-cli/pkg/vision"
	"github.com/v0idlock/civreport-cli/pkg/workflow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newSubmitCmd creates the `submit` command: build one report and push it
// through the browser workflow or the Open311 API.
func newSubmitCmd() *cobra.Command {
	var (
		flagType        string
		flagDescription string
		flagLat         float64
		flagLon         float64
		flagImage       string
		flagSeverity    string
		flagEmail       string
		flagFirstName   string
		flagLastName    string
		flagPhone       string
		flagMethod      string
		flagReportFile  string
		flagFromImage   bool
	)

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a single damage report to the city",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			rep, err := buildReport(flagReportFile, flagType, flagDescription, flagLat, flagLon,
				flagImage, flagSeverity, flagEmail, flagFirstName, flagLastName, flagPhone)
			if err != nil {
				return err
			}

			// Optional vision triage: let Gemini classify the photo and
			// fill in the category and description.
			if flagFromImage {
				if err := triageImage(ctx, cfg, rep, logger); err != nil {
					return err
				}
			}

			if err := rep.Validate(); err != nil {
				return fmt.Errorf("report is not submittable: %w", err)
			}

			// Resolve the street address unless the caller provided one.
			if rep.Address == "" {
				resolveAddress(ctx, geocode.New(cfg.Geocoder, logger), rep, logger)
			}

			writer, err := results.NewJSONWriter(cfg.Output.Dir, logger)
			if err != nil {
				return err
			}

			env, err := dispatchSubmission(ctx, cfg, rep, flagMethod, logger)
			if err != nil {
				return err
			}

			path, err := writer.Write(env)
			if err != nil {
				return err
			}

			if err := persistSubmission(ctx, cfg, env, logger); err != nil {
				// History persistence never blocks the submission result.
				logger.Warn("Failed to persist submission history", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "tracking number: %s\nresult log: %s\n", env.TrackingNumber, path)
			if !env.Success {
				return fmt.Errorf("submission did not complete: %s", env.Error)
			}
			return nil
		},
	}

	submitCmd.Flags().StringVar(&flagType, "type", "", "damage type (e.g. \"Road Crack\", \"Graffiti\")")
	submitCmd.Flags().StringVar(&flagDescription, "description", "", "issue description")
	submitCmd.Flags().Float64Var(&flagLat, "lat", 0, "GPS latitude")
	submitCmd.Flags().Float64Var(&flagLon, "lon", 0, "GPS longitude")
	submitCmd.Flags().StringVar(&flagImage, "image", "", "path to a photo of the damage")
	submitCmd.Flags().StringVar(&flagSeverity, "severity", "", "severity (low, medium, high)")
	submitCmd.Flags().StringVar(&flagEmail, "email", "", "reporter email")
	submitCmd.Flags().StringVar(&flagFirstName, "first-name", "", "reporter first name")
	submitCmd.Flags().StringVar(&flagLastName, "last-name", "", "reporter last name")
	submitCmd.Flags().StringVar(&flagPhone, "phone", "", "reporter phone")
	submitCmd.Flags().StringVar(&flagMethod, "method", "auto", "submission method: browser, api, or auto")
	submitCmd.Flags().StringVar(&flagReportFile, "report", "", "load the report from a JSON file instead of flags")
	submitCmd.Flags().BoolVar(&flagFromImage, "from-image", false, "classify the --image with Gemini to fill type and description")

	return submitCmd
}

// buildReport assembles a report from a JSON file or from flags. Flags
// override file values when both are given.
func buildReport(file, damageType, description string, lat, lon float64,
	image, severity, email, first, last, phone string) (*report.Report, error) {

	rep := &report.Report{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading report file: %w", err)
		}
		if err := json.Unmarshal(data, rep); err != nil {
			return nil, fmt.Errorf("decoding report file: %w", err)
		}
		// File types are free-form text just like flag types; normalize
		// both so the form-URL lookup never sees an unknown category.
		if rep.Type != "" {
			rep.Type = report.ParseDamageType(string(rep.Type))
		}
	}

	if damageType != "" {
		rep.Type = report.ParseDamageType(damageType)
	}
	if description != "" {
		rep.Description = description
	}
	if lat != 0 {
		rep.Latitude = lat
	}
	if lon != 0 {
		rep.Longitude = lon
	}
	if image != "" {
		rep.ImagePath = image
	}
	if severity != "" {
		rep.Severity = severity
	}
	if email != "" {
		rep.Contact.Email = email
	}
	if first != "" {
		rep.Contact.FirstName = first
	}
	if last != "" {
		rep.Contact.LastName = last
	}
	if phone != "" {
		rep.Contact.Phone = phone
	}

	if rep.ID == "" {
		fresh := report.New(rep.Type, rep.Description, rep.Latitude, rep.Longitude)
		fresh.Address = rep.Address
		fresh.City = rep.City
		fresh.State = rep.State
		fresh.ImagePath = rep.ImagePath
		fresh.Severity = rep.Severity
		fresh.Contact = rep.Contact
		rep = fresh
	}
	return rep, nil
}

// triageImage runs the Gemini classifier over the report's photo and fills
// the category, description, and severity from the finding.
func triageImage(ctx context.Context, cfg *config.Config, rep *report.Report, logger *zap.Logger) error {
	if !cfg.Vision.Enabled {
		return fmt.Errorf("--from-image requires vision.enabled in config")
	}
	if rep.ImagePath == "" {
		return fmt.Errorf("--from-image requires --image")
	}

	triage, err := vision.New(ctx, cfg.Vision, logger)
	if err != nil {
		return err
	}

	triageCtx, cancel := context.WithTimeout(ctx, cfg.Vision.Timeout)
	defer cancel()

	finding, err := triage.Analyze(triageCtx, rep.ImagePath, rep.Latitude, rep.Longitude)
	if err != nil {
		return err
	}
	if finding.Category == report.DamageNone {
		return fmt.Errorf("image shows no reportable damage (confidence %.2f)", finding.Confidence)
	}

	rep.Type = finding.Category
	rep.Confidence = finding.Confidence
	if rep.Description == "" {
		rep.Description = finding.Description
	}
	if rep.Severity == "" {
		rep.Severity = finding.Severity
	}
	return nil
}

// resolveAddress reverse geocodes the report's coordinates. The client is
// shared by callers so its rate limiter holds across concurrent reports.
// Geocoding failures degrade to raw coordinates; the form's map search
// accepts both.
func resolveAddress(ctx context.Context, gc *geocode.Client, rep *report.Report, logger *zap.Logger) {
	addr, err := gc.Reverse(ctx, rep.Latitude, rep.Longitude)
	if err != nil {
		logger.Warn("Reverse geocoding failed, continuing with raw coordinates", zap.Error(err))
		return
	}
	rep.Address = addr.Full()
	rep.City = addr.City
	rep.State = addr.State
}

// dispatchSubmission routes the report to the API or the browser workflow.
// "auto" prefers the API when the report's city has an endpoint configured.
func dispatchSubmission(ctx context.Context, cfg *config.Config, rep *report.Report, method string, logger *zap.Logger) (*results.SubmissionEnvelope, error) {
	apiClient := open311.New(cfg.Open311, logger)

	switch method {
	case "api":
		return submitViaAPI(ctx, apiClient, rep, logger)
	case "browser":
		return submitViaBrowser(ctx, cfg, rep, logger)
	case "auto":
		if apiClient.HasEndpoint(rep.City) {
			return submitViaAPI(ctx, apiClient, rep, logger)
		}
		return submitViaBrowser(ctx, cfg, rep, logger)
	default:
		return nil, fmt.Errorf("unknown submission method %q (want browser, api, or auto)", method)
	}
}

// submitViaAPI pushes the report through the city's Open311 endpoint.
func submitViaAPI(ctx context.Context, client *open311.Client, rep *report.Report, logger *zap.Logger) (*results.SubmissionEnvelope, error) {
	env := newEnvelope(rep, results.MethodAPI)

	sr, err := client.Submit(ctx, rep)
	env.FinishedAt = time.Now().UTC()
	if err != nil {
		logger.Error("Open311 submission failed", zap.Error(err))
		env.Method = results.MethodFallback
		env.TrackingNumber = report.FallbackTrackingNumber(rep.ID)
		env.Error = err.Error()
		return env, nil
	}

	env.Success = true
	env.TrackingNumber = sr.ID
	env.Address = rep.Address
	return env, nil
}

// submitViaBrowser drives the full form workflow in a headless session.
func submitViaBrowser(ctx context.Context, cfg *config.Config, rep *report.Report, logger *zap.Logger) (*results.SubmissionEnvelope, error) {
	manager, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		manager.Shutdown(shutdownCtx)
	}()

	session, err := manager.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	shots, err := results.NewScreenshotSink(cfg.Output.ScreenshotDir, logger)
	if err != nil {
		return nil, err
	}

	runner := workflow.NewRunner(session, cfg, shots, logger)
	return runner.Submit(rep)
}

// newEnvelope initializes a result envelope for the report.
func newEnvelope(rep *report.Report, method results.Method) *results.SubmissionEnvelope {
	return &results.SubmissionEnvelope{
		SubmissionID: uuid.NewString(),
		Report:       rep,
		Method:       method,
		Department:   report.Department(rep.Type),
		GeneratedAt:  time.Now().UTC(),
		StartedAt:    time.Now().UTC(),
	}
}

// persistSubmission records the attempt in Postgres when a database URL is
// configured.
func persistSubmission(ctx context.Context, cfg *config.Config, env *results.SubmissionEnvelope, logger *zap.Logger) error {
	if cfg.Database.URL == "" {
		return nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to submission database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope for storage: %w", err)
	}
	return st.SaveSubmission(ctx, env, payload)
}
