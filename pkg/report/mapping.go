// pkg/report/mapping.go
package report

// formURLs is the static mapping from damage type to the public page that
// hosts (or redirects into) the city's report form. The curb/street defect
// form is shared between road and sidewalk damage.
var formURLs = map[DamageType]string{
	DamageRoadCrack:     "https://www.sf.gov/report-curb-and-street-defects",
	DamageSidewalkCrack: "https://www.sf.gov/report-curb-and-street-defects",
	DamageGraffiti:      "https://www.sf.gov/report-graffiti",
	DamageFallenTree:    "https://www.sf.gov/report-damaged-tree",
	DamageStreetLight:   "https://www.sf.gov/report-streetlight-problem",
	DamageTrash:         "https://www.sf.gov/report-garbage-container-issue",
}

// FormURL returns the public form URL for the damage type.
func FormURL(dt DamageType) (string, bool) {
	url, ok := formURLs[dt]
	return url, ok
}

// departments maps damage types to the city department that owns the queue.
var departments = map[DamageType]string{
	DamageRoadCrack:     "Public Works - Street Maintenance",
	DamageSidewalkCrack: "Public Works - Sidewalk Repair",
	DamageGraffiti:      "Public Works - Graffiti Removal",
	DamageFallenTree:    "Public Works - Urban Forestry",
	DamageStreetLight:   "Public Works - Street Lighting",
	DamageTrash:         "Public Works - Street Cleaning",
}

// Department returns the responsible city department for the damage type.
func Department(dt DamageType) string {
	if d, ok := departments[dt]; ok {
		return d
	}
	return "Public Works - General"
}

// serviceCodes maps damage types to Open311 GeoReport v2 service codes.
var serviceCodes = map[DamageType]string{
	DamageRoadCrack:     "street-pothole",
	DamageSidewalkCrack: "sidewalk-damage",
	DamageGraffiti:      "graffiti-removal",
	DamageFallenTree:    "tree-emergency",
	DamageStreetLight:   "street-light-out",
	DamageTrash:         "overflowing-trash-can",
}

// ServiceCode returns the Open311 service code for the damage type.
func ServiceCode(dt DamageType) string {
	if c, ok := serviceCodes[dt]; ok {
		return c
	}
	return "general-request"
}

// issueTypeLabels maps damage types to the visible option text used by the
// city form's issue-type dropdowns and radio groups.
var issueTypeLabels = map[DamageType][]string{
	DamageRoadCrack:     {"Pothole", "Street defect", "Pavement defect"},
	DamageSidewalkCrack: {"Sidewalk defect", "Curb defect", "Sidewalk damage"},
	DamageGraffiti:      {"Graffiti on public property", "Graffiti"},
	DamageFallenTree:    {"Fallen tree", "Damaged tree", "Tree emergency"},
	DamageStreetLight:   {"Streetlight out", "Streetlight problem"},
	DamageTrash:         {"Overflowing container", "Garbage container"},
}

// IssueTypeLabels returns the option labels to try, in preference order,
// when picking the issue type on the form.
func IssueTypeLabels(dt DamageType) []string {
	return issueTypeLabels[dt]
}
