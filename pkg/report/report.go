// pkg/report/report.go
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DamageType identifies the category of civic damage being reported. The
// values match the categories the vision triage emits and the city's own
// issue-type dropdowns key off.
type DamageType string

const (
	DamageRoadCrack     DamageType = "Road Crack"
	DamageSidewalkCrack DamageType = "Sidewalk Crack"
	DamageGraffiti      DamageType = "Graffiti"
	DamageFallenTree    DamageType = "Fallen Tree"
	DamageStreetLight   DamageType = "Broken Street Light"
	DamageTrash         DamageType = "Overflowing Trash"
	// DamageNone marks an image that shows no reportable damage. Reports
	// with this type are rejected before any submission attempt.
	DamageNone DamageType = "None"
)

// knownTypes lists every reportable damage type, in display order.
var knownTypes = []DamageType{
	DamageRoadCrack,
	DamageSidewalkCrack,
	DamageGraffiti,
	DamageFallenTree,
	DamageStreetLight,
	DamageTrash,
}

// KnownTypes returns the reportable damage types.
func KnownTypes() []DamageType {
	out := make([]DamageType, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// ParseDamageType normalizes free-form category text into a DamageType.
// Matching is case-insensitive and tolerates partial matches ("pothole",
// "graffiti removal"). Unrecognized input maps to DamageNone.
func ParseDamageType(s string) DamageType {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	switch trimmed {
	case "", "none", "no issue", "not applicable", "n/a":
		return DamageNone
	}

	for _, dt := range knownTypes {
		lower := strings.ToLower(string(dt))
		if trimmed == lower || strings.Contains(trimmed, lower) || strings.Contains(lower, trimmed) {
			return dt
		}
	}

	// Common aliases seen in the wild.
	switch {
	case strings.Contains(trimmed, "pothole"), strings.Contains(trimmed, "road"), strings.Contains(trimmed, "street damage"):
		return DamageRoadCrack
	case strings.Contains(trimmed, "sidewalk"), strings.Contains(trimmed, "curb"):
		return DamageSidewalkCrack
	case strings.Contains(trimmed, "graffiti"), strings.Contains(trimmed, "vandal"):
		return DamageGraffiti
	case strings.Contains(trimmed, "tree"), strings.Contains(trimmed, "branch"):
		return DamageFallenTree
	case strings.Contains(trimmed, "light"), strings.Contains(trimmed, "lamp"):
		return DamageStreetLight
	case strings.Contains(trimmed, "trash"), strings.Contains(trimmed, "garbage"), strings.Contains(trimmed, "litter"):
		return DamageTrash
	}
	return DamageNone
}

// Contact holds the reporter's contact details for the contact page.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// Report is a single damage report, built once and submitted once.
type Report struct {
	ID          string     `json:"id"`
	Type        DamageType `json:"type"`
	Description string     `json:"description"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	// Address is the reverse-geocoded street address. Filled by the
	// geocoder when empty.
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	ImagePath string  `json:"image_path,omitempty"`
	Severity  string  `json:"severity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Contact   Contact `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

// New constructs a report with a fresh ID and timestamp.
func New(dt DamageType, description string, lat, lon float64) *Report {
	return &Report{
		ID:          uuid.New().String(),
		Type:        dt,
		Description: description,
		Latitude:    lat,
		Longitude:   lon,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks the "required fields must be non-empty" contract plus
// basic coordinate sanity. It does not verify the address; the geocoder
// fills that in later.
func (r *Report) Validate() error {
	if r.Type == "" || r.Type == DamageNone {
		return fmt.Errorf("report has no reportable damage type")
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("report description is required")
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", r.Longitude)
	}
	if r.Latitude == 0 && r.Longitude == 0 {
		return fmt.Errorf("report has no coordinates")
	}
	if strings.TrimSpace(r.Contact.Email) == "" {
		return fmt.Errorf("reporter email is required")
	}
	if !strings.Contains(r.Contact.Email, "@") {
		return fmt.Errorf("reporter email %q is not an email address", r.Contact.Email)
	}
	return nil
}

// Coordinates renders the position the way the city form's search box
// accepts it: "lat, lon".
func (r *Report) Coordinates() string {
	return fmt.Sprintf("%f, %f", r.Latitude, r.Longitude)
}
