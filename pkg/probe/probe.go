// pkg/probe/probe.go
package probe

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/pkg/browser"
)

// Element is one interactive element discovered on the page, with the
// candidate selectors that would reach it again.
type Element struct {
	Tag         string   `json:"tag"`
	Type        string   `json:"type,omitempty"`
	Text        string   `json:"text,omitempty"`
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	AriaLabel   string   `json:"aria_label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Role        string   `json:"role,omitempty"`
	Href        string   `json:"href,omitempty"`
	Visible     bool     `json:"visible"`
	Selectors   []string `json:"selectors"`
	// Options carries the option labels of a <select>.
	Options []string `json:"options,omitempty"`
	// Group is the radio group name for radio inputs.
	Group   string `json:"group,omitempty"`
	Checked bool   `json:"checked,omitempty"`
}

// PageReport is the probe output for one page: the element inventory,
// bucketed the way the form-filling code consumes it.
type PageReport struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	CapturedAt time.Time `json:"captured_at"`

	Buttons    []Element `json:"buttons"`
	Links      []Element `json:"links"`
	Inputs     []Element `json:"inputs"`
	Selects    []Element `json:"selects"`
	Radios     []Element `json:"radios"`
	Checkboxes []Element `json:"checkboxes"`
	FileInputs []Element `json:"file_inputs"`
	MapWidgets []Element `json:"map_widgets"`
	Frames     []Element `json:"frames"`
}

// RadioGroups buckets the discovered radios by their group name.
func (p *PageReport) RadioGroups() map[string][]Element {
	groups := make(map[string][]Element)
	for _, el := range p.Radios {
		key := el.Group
		if key == "" {
			key = "(unnamed)"
		}
		groups[key] = append(groups[key], el)
	}
	return groups
}

// Prober walks pages and inventories their interactive elements.
type Prober struct {
	logger *zap.Logger
}

// New creates a Prober.
func New(logger *zap.Logger) *Prober {
	return &Prober{logger: logger.Named("probe")}
}

// Inspect navigates the session to the URL and returns the page inventory.
func (p *Prober) Inspect(session *browser.Session, url string) (*PageReport, error) {
	if err := session.Navigate(url); err != nil {
		return nil, fmt.Errorf("probe navigation failed: %w", err)
	}
	return p.InspectCurrent(session)
}

// InspectCurrent inventories the session's current page without navigating.
func (p *Prober) InspectCurrent(session *browser.Session) (*PageReport, error) {
	var raw []Element
	if err := session.Evaluate(inventoryScript, &raw); err != nil {
		return nil, fmt.Errorf("element inventory script failed: %w", err)
	}

	rep := Classify(raw)
	rep.CapturedAt = time.Now().UTC()

	if url, err := session.CurrentURL(); err == nil {
		rep.URL = url
	}
	if title, err := session.Title(); err == nil {
		rep.Title = title
	}

	p.logger.Info("Page inventory complete",
		zap.String("url", rep.URL),
		zap.Int("buttons", len(rep.Buttons)),
		zap.Int("inputs", len(rep.Inputs)),
		zap.Int("selects", len(rep.Selects)),
		zap.Int("radios", len(rep.Radios)),
		zap.Int("map_widgets", len(rep.MapWidgets)),
	)
	return rep, nil
}

// Classify buckets a raw element inventory into the PageReport shape.
func Classify(elements []Element) *PageReport {
	rep := &PageReport{}
	for _, el := range elements {
		switch el.Tag {
		case "button":
			rep.Buttons = append(rep.Buttons, el)
		case "a":
			rep.Links = append(rep.Links, el)
		case "select":
			rep.Selects = append(rep.Selects, el)
		case "textarea":
			rep.Inputs = append(rep.Inputs, el)
		case "iframe":
			rep.Frames = append(rep.Frames, el)
		case "input":
			switch el.Type {
			case "radio":
				rep.Radios = append(rep.Radios, el)
			case "checkbox":
				rep.Checkboxes = append(rep.Checkboxes, el)
			case "file":
				rep.FileInputs = append(rep.FileInputs, el)
			case "submit", "button":
				rep.Buttons = append(rep.Buttons, el)
			default:
				rep.Inputs = append(rep.Inputs, el)
			}
		default:
			if el.Role == "button" {
				rep.Buttons = append(rep.Buttons, el)
				continue
			}
			// Anything else in the inventory is a map container.
			rep.MapWidgets = append(rep.MapWidgets, el)
		}
	}
	return rep
}
