// pkg/probe/probe_test.go
package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	raw := []Element{
		{Tag: "button", Text: "Next", Selectors: []string{"#next"}},
		{Tag: "a", Text: "Report it", Href: "/report", Selectors: []string{"a[href=\"/report\"]"}},
		{Tag: "input", Type: "text", Name: "description", Selectors: []string{"input[name=\"description\"]"}},
		{Tag: "input", Type: "email", Name: "email", Selectors: []string{"input[name=\"email\"]"}},
		{Tag: "input", Type: "radio", Group: "issueType", Selectors: []string{"input[name=\"issueType\"][value=\"pothole\"]"}},
		{Tag: "input", Type: "radio", Group: "issueType", Selectors: []string{"input[name=\"issueType\"][value=\"graffiti\"]"}},
		{Tag: "input", Type: "radio", Group: "", Selectors: []string{"#lonely-radio"}},
		{Tag: "input", Type: "checkbox", Name: "anonymous", Selectors: []string{"input[name=\"anonymous\"]"}},
		{Tag: "input", Type: "file", Name: "photo", Selectors: []string{"input[type=\"file\"]"}},
		{Tag: "input", Type: "submit", Text: "Submit", Selectors: []string{"input[type=\"submit\"]"}},
		{Tag: "select", Name: "severity", Options: []string{"Low", "Medium", "High"}, Selectors: []string{"select[name=\"severity\"]"}},
		{Tag: "textarea", Name: "details", Selectors: []string{"textarea[name=\"details\"]"}},
		{Tag: "iframe", Selectors: []string{"iframe#form-frame"}},
		{Tag: "div", Role: "button", Text: "Continue", Selectors: []string{"div.fake-button"}},
		{Tag: "div", Selectors: []string{".leaflet-container"}},
	}

	rep := Classify(raw)

	assert.Len(t, rep.Buttons, 3, "button tag, submit input, role=button div")
	assert.Len(t, rep.Links, 1)
	assert.Len(t, rep.Inputs, 3, "text, email, textarea")
	assert.Len(t, rep.Selects, 1)
	assert.Len(t, rep.Radios, 3)
	assert.Len(t, rep.Checkboxes, 1)
	assert.Len(t, rep.FileInputs, 1)
	assert.Len(t, rep.Frames, 1)
	assert.Len(t, rep.MapWidgets, 1)
}

func TestClassifyEmpty(t *testing.T) {
	rep := Classify(nil)
	require.NotNil(t, rep)
	assert.Empty(t, rep.Buttons)
	assert.Empty(t, rep.MapWidgets)
}

func TestRadioGroups(t *testing.T) {
	rep := &PageReport{
		Radios: []Element{
			{Tag: "input", Type: "radio", Group: "issueType"},
			{Tag: "input", Type: "radio", Group: "issueType"},
			{Tag: "input", Type: "radio", Group: "urgency"},
			{Tag: "input", Type: "radio"},
		},
	}

	groups := rep.RadioGroups()
	assert.Len(t, groups, 3)
	assert.Len(t, groups["issueType"], 2)
	assert.Len(t, groups["urgency"], 1)
	assert.Len(t, groups["(unnamed)"], 1)
}

func TestSelectOptionsSurvive(t *testing.T) {
	rep := Classify([]Element{
		{Tag: "select", Name: "severity", Options: []string{"Low", "Medium", "High"}},
	})
	require.Len(t, rep.Selects, 1)
	assert.Equal(t, []string{"Low", "Medium", "High"}, rep.Selects[0].Options)
}
