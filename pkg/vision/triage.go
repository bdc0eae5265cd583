// pkg/vision/triage.go
package vision

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/pkg/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Finding is the triage verdict for one photo.
type Finding struct {
	Category    report.DamageType `json:"category"`
	Description string            `json:"description"`
	Severity    string            `json:"severity"`
	Confidence  float64           `json:"confidence"`
	// LocationNotes describes where in the frame the damage sits, which
	// feeds the form's "where exactly" field.
	LocationNotes string `json:"location_notes"`
}

// rawFinding matches the response schema before category normalization.
type rawFinding struct {
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Severity      string  `json:"severity"`
	Confidence    float64 `json:"confidence"`
	LocationNotes string  `json:"location_notes"`
}

// Triage classifies damage photos with Gemini before any submission is
// attempted, filtering out images that show nothing reportable.
type Triage struct {
	client    *genai.Client
	model     string
	threshold float64
	logger    *zap.Logger
}

// New creates a triage client. The API key comes from configuration
// (CIVREPORT_GEMINI_API_KEY).
func New(ctx context.Context, cfg config.VisionConfig, logger *zap.Logger) (*Triage, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Triage{
		client:    client,
		model:     cfg.Model,
		threshold: cfg.ConfidenceThreshold,
		logger:    logger.Named("vision"),
	}, nil
}

// Analyze classifies the image at imagePath, taken at the given coordinates.
// Low-confidence detections are downgraded to DamageNone.
func (t *Triage) Analyze(ctx context.Context, imagePath string, lat, lon float64) (*Finding, error) {
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		{Text: fmt.Sprintf(triagePrompt, lat, lon)},
		{InlineData: &genai.Blob{Data: imageBytes, MIMEType: mimeType}},
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model,
		[]*genai.Content{{Parts: parts}}, generateConfig())
	if err != nil {
		return nil, fmt.Errorf("gemini triage failed: %w", err)
	}

	text := result.Text()
	finding, demoted, err := parseFinding(text, t.threshold)
	if err != nil {
		return nil, err
	}
	if demoted {
		t.logger.Warn("Low confidence detection rejected",
			zap.Float64("confidence", finding.Confidence),
			zap.Float64("threshold", t.threshold),
		)
	}

	t.logger.Info("Image triaged",
		zap.String("category", string(finding.Category)),
		zap.Float64("confidence", finding.Confidence),
	)
	return finding, nil
}

// parseFinding decodes the model's JSON verdict, normalizes the category,
// and demotes detections below the confidence threshold to DamageNone.
func parseFinding(text string, threshold float64) (*Finding, bool, error) {
	var raw rawFinding
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false, fmt.Errorf("decoding triage response %q: %w", text, err)
	}

	finding := &Finding{
		Category:      report.ParseDamageType(raw.Category),
		Description:   raw.Description,
		Severity:      raw.Severity,
		Confidence:    raw.Confidence,
		LocationNotes: raw.LocationNotes,
	}

	demoted := false
	if finding.Category != report.DamageNone && finding.Confidence < threshold {
		finding.Category = report.DamageNone
		demoted = true
	}
	return finding, demoted, nil
}

// generateConfig constrains the model to the JSON shape Analyze expects.
func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Description: "One of: Road Crack, Sidewalk Crack, Graffiti, Fallen Tree, Broken Street Light, Overflowing Trash, None",
				},
				"description": {
					Type:        genai.TypeString,
					Description: "Two to three sentence factual description of the damage for a city work order",
				},
				"severity": {
					Type:        genai.TypeString,
					Description: "low, medium, or high",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Detection confidence between 0 and 1",
				},
				"location_notes": {
					Type:        genai.TypeString,
					Description: "Where in the scene the damage sits (roadway, curb line, building wall, etc.)",
				},
			},
			Required: []string{"category", "description", "severity", "confidence"},
		},
	}
}

// triagePrompt is formatted with the photo's latitude and longitude.
const triagePrompt = `You are a civic infrastructure damage detector for a city's 311 reporting system. Analyze this photo taken at coordinates (%f, %f).

If the photo shows none of the categories below, or is indoors, a screenshot, a person, or otherwise not reportable city infrastructure, return category="None".

Otherwise choose the ONE category that best matches the actual damage:
- "Road Crack": potholes, cracked or buckled asphalt in the roadway
- "Sidewalk Crack": cracked, lifted, or broken sidewalk or curb
- "Graffiti": paint, markers, or stickers defacing public or private property
- "Fallen Tree": fallen or dangerously damaged trees or large branches
- "Broken Street Light": streetlights that are dark, flickering, or physically damaged
- "Overflowing Trash": public garbage containers overflowing onto the street

Report severity as low, medium, or high based on the hazard to the public, and confidence as your certainty (0 to 1) that the category is correct.`
