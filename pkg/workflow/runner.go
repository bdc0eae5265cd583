// pkg/workflow/runner.go
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/pkg/browser"
	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
)

// Stage names as they appear in the step log.
const (
	StageLanding      = "landing"
	StageReportEntry  = "report_entry"
	StageDisclaimer   = "emergency_disclaimer"
	StageIssueType    = "issue_type"
	StageLocation     = "location"
	StageDetails      = "details"
	StageContact      = "contact"
	StageSubmit       = "review_submit"
	StageConfirmation = "confirmation"
)

// ErrStageFailed wraps a required stage that could not be completed when the
// workflow is configured to abort instead of degrade.
var ErrStageFailed = errors.New("required workflow stage failed")

// Runner drives one report through the city's multi-step form in a single
// browser session. Strictly sequential; the target form keeps server-side
// state between pages and tolerates no reordering.
type Runner struct {
	session *browser.Session
	cfg     *config.Config
	logger  *zap.Logger
	// shots is optional; nil disables screenshots.
	shots *results.ScreenshotSink
}

// NewRunner wires a workflow runner onto an open session.
func NewRunner(session *browser.Session, cfg *config.Config, shots *results.ScreenshotSink, logger *zap.Logger) *Runner {
	return &Runner{
		session: session,
		cfg:     cfg,
		logger:  logger.Named("workflow"),
		shots:   shots,
	}
}

// Submit walks the full page sequence for the report and returns the result
// envelope. A degraded run (required stage missed, AbortOnMissingStep off)
// returns an envelope with Success=false and a fallback tracking number
// rather than an error; errors are reserved for hard aborts.
func (r *Runner) Submit(rep *report.Report) (*results.SubmissionEnvelope, error) {
	env := &results.SubmissionEnvelope{
		SubmissionID: uuid.New().String(),
		GeneratedAt:  time.Now().UTC(),
		Report:       rep,
		Method:       results.MethodBrowser,
		Department:   report.Department(rep.Type),
		StartedAt:    time.Now().UTC(),
	}

	formURL, ok := report.FormURL(rep.Type)
	if !ok {
		return nil, fmt.Errorf("no public form is known for damage type %q", rep.Type)
	}

	r.logger.Info("Starting form submission",
		zap.String("submission_id", env.SubmissionID),
		zap.String("damage_type", string(rep.Type)),
		zap.String("form_url", formURL),
	)

	type stage struct {
		name     string
		required bool
		run      func() (string, error)
	}

	stages := []stage{
		{StageLanding, true, func() (string, error) {
			return "", r.session.Navigate(formURL)
		}},
		{StageReportEntry, false, r.enterForm},
		{StageDisclaimer, false, r.dismissDisclaimer},
		{StageIssueType, true, func() (string, error) { return r.chooseIssueType(rep) }},
		{StageLocation, true, func() (string, error) { return r.setLocation(rep) }},
		{StageDetails, true, func() (string, error) { return r.fillDetails(rep) }},
		{StageContact, true, func() (string, error) { return r.fillContact(rep) }},
		{StageSubmit, true, r.submitForm},
	}

	aborted := false
	for _, st := range stages {
		rec := r.runStage(env, st.name, st.run)
		if rec.Error == "" {
			continue
		}
		if !st.required {
			rec.Skipped = true
			r.logger.Warn("Optional stage skipped", zap.String("stage", st.name), zap.String("error", rec.Error))
			continue
		}
		if r.cfg.Workflow.AbortOnMissingStep {
			env.Error = rec.Error
			env.FinishedAt = time.Now().UTC()
			return env, fmt.Errorf("%w: %s: %s", ErrStageFailed, st.name, rec.Error)
		}
		r.logger.Error("Required stage failed, degrading", zap.String("stage", st.name), zap.String("error", rec.Error))
		env.Error = fmt.Sprintf("stage %s: %s", st.name, rec.Error)
		aborted = true
		break
	}

	if !aborted {
		r.runStage(env, StageConfirmation, func() (string, error) {
			return r.scrapeConfirmation(env)
		})
	}

	if env.TrackingNumber == "" {
		// The original scripts always handed back something traceable.
		env.TrackingNumber = report.FallbackTrackingNumber(rep.ID)
		env.Method = results.MethodFallback
		env.Success = false
	} else {
		env.Success = true
	}
	if env.Address == "" {
		env.Address = rep.Address
	}
	env.FinishedAt = time.Now().UTC()

	r.logger.Info("Form submission finished",
		zap.Bool("success", env.Success),
		zap.String("tracking_number", env.TrackingNumber),
		zap.String("method", string(env.Method)),
	)
	return env, nil
}

// runStage executes one stage, timing it and capturing a screenshot, and
// appends the record to the envelope. The returned pointer aliases the
// envelope's slice entry.
func (r *Runner) runStage(env *results.SubmissionEnvelope, name string, fn func() (string, error)) *results.StepRecord {
	start := time.Now()
	selector, err := fn()

	rec := results.StepRecord{
		Stage:    name,
		Selector: selector,
		Duration: time.Since(start),
	}
	if err != nil {
		rec.Error = err.Error()
	}

	if r.shots != nil && r.cfg.Workflow.ScreenshotEveryStep {
		if png, shotErr := r.session.Screenshot(); shotErr == nil {
			if path, saveErr := r.shots.Save(env.SubmissionID, name, png); saveErr == nil {
				rec.Screenshot = path
			}
		} else {
			r.logger.Debug("Screenshot failed", zap.String("stage", name), zap.Error(shotErr))
		}
	}

	env.Steps = append(env.Steps, rec)
	return &env.Steps[len(env.Steps)-1]
}

// enterForm clicks from the public landing page into the hosted form.
func (r *Runner) enterForm() (string, error) {
	sel, err := r.session.ClickAny("report entry button", reportEntryCandidates)
	if err != nil {
		sel, err = r.session.ClickByText("report entry button", reportEntryTexts)
	}
	if err != nil {
		return "", err
	}
	// The redirect lands on a different origin; give it a full load cycle.
	if werr := r.session.WaitSettle(r.cfg.Network.PostLoadWait); werr != nil {
		return sel, werr
	}
	return sel, nil
}

// dismissDisclaimer answers the "is this an emergency" gate with no.
func (r *Runner) dismissDisclaimer() (string, error) {
	sel, err := r.session.ClickAny("emergency disclaimer", emergencyNoCandidates)
	if err != nil {
		sel, err = r.session.ClickByText("emergency disclaimer", emergencyNoTexts)
	}
	if err != nil {
		return "", err
	}
	return sel, r.advance()
}

// chooseIssueType picks the report category from a dropdown, falling back to
// radio groups on forms that render categories that way.
func (r *Runner) chooseIssueType(rep *report.Report) (string, error) {
	labels := report.IssueTypeLabels(rep.Type)

	sel, label, err := r.session.SelectAny("issue type dropdown", issueTypeSelectCandidates, labels)
	if err == nil {
		r.logger.Debug("Issue type selected", zap.String("label", label))
		return sel, r.advance()
	}

	// Radio-based forms: match by value/label text, never by DOM order.
	if sel, label, rerr := r.session.CheckRadioAny("issue type radio", issueTypeRadioCandidates, labels); rerr == nil {
		r.logger.Debug("Issue type radio checked", zap.String("label", label))
		return sel, r.advance()
	}
	if sel, terr := r.session.ClickByText("issue type option", labels); terr == nil {
		return sel, r.advance()
	}

	// Last resort: the first radio in the group. The category may not
	// match, so make it visible in the run log.
	if sel, rerr := r.session.ClickAny("issue type radio", issueTypeRadioCandidates); rerr == nil {
		r.logger.Warn("No issue type control matched the category labels; clicked first radio",
			zap.String("damage_type", string(rep.Type)))
		return sel, r.advance()
	}
	return "", err
}

// setLocation satisfies the map step, either through the address search box
// or by clicking the center of the map widget.
func (r *Runner) setLocation(rep *report.Report) (string, error) {
	var sel string
	var err error

	switch r.cfg.Workflow.MapStrategy {
	case "center-click":
		sel, err = r.session.ClickElementCenter("map widget", mapContainerCandidates)
	default: // address-search
		query := rep.Address
		if query == "" {
			query = rep.Coordinates()
		}
		sel, err = r.session.TypeAny("map address search", mapSearchCandidates, query)
		if err == nil {
			if perr := r.session.PressEnter(sel); perr != nil {
				return sel, perr
			}
		} else {
			// Some forms have no search box at all. Fall back to the map.
			sel, err = r.session.ClickElementCenter("map widget", mapContainerCandidates)
		}
	}
	if err != nil {
		return "", err
	}

	// The map animates and drops a pin asynchronously.
	if werr := r.session.WaitSettle(r.cfg.Network.SettleWait); werr != nil {
		return sel, werr
	}

	// Optional "where exactly" free-text field next to the map.
	if rep.Address != "" {
		if _, derr := r.session.TypeAny("location description", locationDescriptionCandidates, rep.Address); derr != nil {
			r.logger.Debug("No location description field", zap.Error(derr))
		}
	}

	return sel, r.advance()
}

// fillDetails fills the request description, severity, and photo upload.
func (r *Runner) fillDetails(rep *report.Report) (string, error) {
	sel, err := r.session.TypeAny("request description", descriptionCandidates, rep.Description)
	if err != nil {
		return "", err
	}

	if rep.Severity != "" {
		if _, _, serr := r.session.SelectAny("severity dropdown", severitySelectCandidates, []string{rep.Severity}); serr != nil {
			r.logger.Debug("No severity field", zap.Error(serr))
		}
	}

	if rep.ImagePath != "" {
		if _, uerr := r.session.UploadAny("photo upload", uploadCandidates, rep.ImagePath); uerr != nil {
			r.logger.Warn("Photo upload failed, continuing without image", zap.Error(uerr))
		} else if werr := r.session.WaitSettle(r.cfg.Network.SettleWait); werr != nil {
			return sel, werr
		}
	}

	return sel, r.advance()
}

// fillContact fills the reporter's contact page.
func (r *Runner) fillContact(rep *report.Report) (string, error) {
	c := rep.Contact

	if c.FirstName != "" {
		if _, err := r.session.TypeAny("first name", firstNameCandidates, c.FirstName); err != nil {
			r.logger.Debug("No first name field", zap.Error(err))
		}
	}
	if c.LastName != "" {
		if _, err := r.session.TypeAny("last name", lastNameCandidates, c.LastName); err != nil {
			r.logger.Debug("No last name field", zap.Error(err))
		}
	}

	sel, err := r.session.TypeAny("email", emailCandidates, c.Email)
	if err != nil {
		return "", err
	}

	if c.Phone != "" {
		if _, perr := r.session.TypeAny("phone", phoneCandidates, c.Phone); perr != nil {
			r.logger.Debug("No phone field", zap.Error(perr))
		}
	}

	return sel, r.advance()
}

// submitForm clicks the final submit on the review page.
func (r *Runner) submitForm() (string, error) {
	sel, err := r.session.ClickAny("submit button", submitButtonCandidates)
	if err != nil {
		sel, err = r.session.ClickByText("submit button", submitButtonTexts)
	}
	if err != nil {
		return "", err
	}
	return sel, nil
}

// scrapeConfirmation waits for the confirmation page and pulls the service
// request number and resolved address out of its text.
func (r *Runner) scrapeConfirmation(env *results.SubmissionEnvelope) (string, error) {
	if err := r.session.WaitSettle(r.cfg.Workflow.ConfirmationWait); err != nil {
		return "", err
	}

	text, err := r.session.BodyText()
	if err != nil {
		return "", fmt.Errorf("reading confirmation page: %w", err)
	}

	if num, ok := report.ExtractTrackingNumber(text); ok {
		env.TrackingNumber = num
	} else {
		return "", fmt.Errorf("no service request number found on confirmation page")
	}
	if addr, ok := report.ExtractAddress(text); ok {
		env.Address = addr
	}
	return "", nil
}

// advance clicks whatever "next" control the current page offers, then lets
// the next page settle.
func (r *Runner) advance() error {
	if _, err := r.session.ClickAny("next button", nextButtonCandidates); err != nil {
		if _, terr := r.session.ClickByText("next button", nextButtonTexts); terr != nil {
			return err
		}
	}
	return r.session.WaitSettle(r.cfg.Network.SettleWait)
}
