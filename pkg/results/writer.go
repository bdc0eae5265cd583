// pkg/results/writer.go
package results

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer persists submission envelopes.
type Writer interface {
	// Write persists a single envelope and returns the path it landed at.
	Write(env *SubmissionEnvelope) (string, error)
}

// JSONWriter writes one pretty-printed JSON file per submission attempt
// under a fixed directory, named by submission ID.
type JSONWriter struct {
	dir    string
	logger *zap.Logger
}

// NewJSONWriter creates the output directory if needed.
func NewJSONWriter(dir string, logger *zap.Logger) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory %s: %w", dir, err)
	}
	return &JSONWriter{dir: dir, logger: logger.Named("results")}, nil
}

// Write persists the envelope as <dir>/<submission-id>.json.
func (w *JSONWriter) Write(env *SubmissionEnvelope) (string, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding submission envelope: %w", err)
	}
	path := filepath.Join(w.dir, env.SubmissionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing submission envelope: %w", err)
	}
	w.logger.Info("Submission result written", zap.String("path", path), zap.Bool("success", env.Success))
	return path, nil
}

// ReadEnvelope loads an envelope back from disk.
func ReadEnvelope(path string) (*SubmissionEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env SubmissionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding submission envelope %s: %w", path, err)
	}
	return &env, nil
}

// ScreenshotSink stores per-step screenshots on disk.
type ScreenshotSink struct {
	dir    string
	logger *zap.Logger
}

// NewScreenshotSink creates the screenshot directory if needed.
func NewScreenshotSink(dir string, logger *zap.Logger) (*ScreenshotSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory %s: %w", dir, err)
	}
	return &ScreenshotSink{dir: dir, logger: logger.Named("screenshots")}, nil
}

// Save writes PNG bytes under a submission- and stage-derived name and
// returns the path.
func (s *ScreenshotSink) Save(submissionID, stage string, png []byte) (string, error) {
	name := fmt.Sprintf("%s_%s.png", submissionID, stage)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	return path, nil
}
