// pkg/vision/triage_test.go
package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0idlock/civreport-cli/pkg/report"
)

func TestParseFinding(t *testing.T) {
	t.Run("confident detection passes through", func(t *testing.T) {
		text := `{
			"category": "Road Crack",
			"description": "A deep pothole roughly 40cm wide sits in the right travel lane.",
			"severity": "high",
			"confidence": 0.93,
			"location_notes": "center of the roadway"
		}`

		finding, demoted, err := parseFinding(text, 0.7)
		require.NoError(t, err)
		assert.False(t, demoted)
		assert.Equal(t, report.DamageRoadCrack, finding.Category)
		assert.Equal(t, "high", finding.Severity)
		assert.Equal(t, 0.93, finding.Confidence)
		assert.Equal(t, "center of the roadway", finding.LocationNotes)
	})

	t.Run("low confidence demotes to none", func(t *testing.T) {
		text := `{"category": "Graffiti", "description": "Faint markings.", "severity": "low", "confidence": 0.4}`

		finding, demoted, err := parseFinding(text, 0.7)
		require.NoError(t, err)
		assert.True(t, demoted)
		assert.Equal(t, report.DamageNone, finding.Category)
		assert.Equal(t, 0.4, finding.Confidence, "original confidence is preserved on demotion")
	})

	t.Run("explicit none is not demoted", func(t *testing.T) {
		text := `{"category": "None", "description": "Indoor photo.", "severity": "low", "confidence": 0.1}`

		finding, demoted, err := parseFinding(text, 0.7)
		require.NoError(t, err)
		assert.False(t, demoted)
		assert.Equal(t, report.DamageNone, finding.Category)
	})

	t.Run("free-form category text is normalized", func(t *testing.T) {
		text := `{"category": "graffiti on a wall", "description": "Spray paint tags.", "severity": "medium", "confidence": 0.85}`

		finding, _, err := parseFinding(text, 0.7)
		require.NoError(t, err)
		assert.Equal(t, report.DamageGraffiti, finding.Category)
	})

	t.Run("malformed json fails", func(t *testing.T) {
		_, _, err := parseFinding(`not json at all`, 0.7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding triage response")
	})
}
