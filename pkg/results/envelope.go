// pkg/results/envelope.go
package results

import (
	"time"

	"github.com/v0idlock/civreport-cli/pkg/report"
)

// Method records which path produced (or failed to produce) a submission.
type Method string

const (
	MethodBrowser  Method = "browser"
	MethodAPI      Method = "api"
	MethodFallback Method = "fallback"
)

// StepRecord is one stage of the browser workflow as it actually ran.
type StepRecord struct {
	Stage      string        `json:"stage"`
	Selector   string        `json:"selector,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
	Error      string        `json:"error,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// SubmissionEnvelope is the JSON result log written for every submission
// attempt, successful or not.
type SubmissionEnvelope struct {
	SubmissionID   string         `json:"submission_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Report         *report.Report `json:"report"`
	Success        bool           `json:"success"`
	Method         Method         `json:"method"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	Address        string         `json:"address,omitempty"`
	Department     string         `json:"department,omitempty"`
	Steps          []StepRecord   `json:"steps,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}
