// pkg/workflow/selectors.go
package workflow

// Candidate selector lists for each stage of the city's report flow. The
// markup belongs to the city (and its form vendor) and changes without
// notice; every list is ordered from most to least specific, and the first
// visible match wins. Text-based fallbacks live next to each list and are
// tried only after the whole list misses.

// reportEntryCandidates locate the button/link on the public landing page
// that redirects into the hosted form.
var reportEntryCandidates = []string{
	`a[href*="verintcloudservices"]`,
	`a[href*="mobile311"]`,
	`a[data-button="start"]`,
	`a.cmp-button--primary`,
	`a.btn--primary[href*="report"]`,
	`main a.cmp-button`,
}

var reportEntryTexts = []string{"report", "start", "make a request"}

// emergencyNoCandidates pick the "this is not an emergency" answer on the
// disclaimer page.
var emergencyNoCandidates = []string{
	`input[type="radio"][value="no"]`,
	`input[type="radio"][value="No"]`,
	`input[type="radio"][id*="emergency"][value*="n"]`,
	`input[name*="emergency"][type="radio"]:not([value*="y"]):not([value*="Y"])`,
	`label[for*="emergency-no"]`,
}

var emergencyNoTexts = []string{"not an emergency", "no", "continue to report"}

// issueTypeSelectCandidates locate the issue-type dropdown.
var issueTypeSelectCandidates = []string{
	`select[name*="issue"]`,
	`select[name*="type"]`,
	`select[name*="category"]`,
	`select[id*="issue"]`,
	`select[id*="service"]`,
	`form select`,
}

// issueTypeRadioPrefix is formatted with the option label when the issue
// type is a radio group instead of a dropdown.
var issueTypeRadioCandidates = []string{
	`input[type="radio"][name*="issue"]`,
	`input[type="radio"][name*="type"]`,
	`input[type="radio"][name*="category"]`,
}

// mapSearchCandidates locate the address search box attached to the map
// widget.
var mapSearchCandidates = []string{
	`input[placeholder*="address"]`,
	`input[placeholder*="Address"]`,
	`input[placeholder*="Search"]`,
	`input[aria-label*="search"]`,
	`input[title*="Search"]`,
	`.esri-search__input`,
	`.leaflet-control-geocoder input`,
	`input[name*="location"]`,
	`input[id*="search"]`,
}

// mapContainerCandidates locate the map widget itself for center clicks.
var mapContainerCandidates = []string{
	`.esri-view-surface`,
	`.esri-view`,
	`.leaflet-container`,
	`.mapboxgl-map`,
	`div[class*="map-container"]`,
	`div[id*="map"]`,
}

// locationDescriptionCandidates locate the free-text "where exactly" field
// that accompanies the map on some forms.
var locationDescriptionCandidates = []string{
	`textarea[name*="location"]`,
	`input[name*="location_description"]`,
	`textarea[id*="location"]`,
}

// descriptionCandidates locate the request details field.
var descriptionCandidates = []string{
	`textarea[name*="description"]`,
	`textarea[name*="details"]`,
	`textarea[id*="description"]`,
	`textarea[aria-label*="description"]`,
	`form textarea`,
}

// severitySelectCandidates locate the optional severity/priority dropdown.
var severitySelectCandidates = []string{
	`select[name*="severity"]`,
	`select[name*="priority"]`,
	`select[id*="severity"]`,
}

// uploadCandidates locate the photo upload input. These are routinely
// hidden behind styled drop zones.
var uploadCandidates = []string{
	`input[type="file"]`,
	`input[type="file"][accept*="image"]`,
	`input[name*="photo"]`,
	`input[name*="attachment"]`,
}

// Contact page fields.
var firstNameCandidates = []string{
	`input[name*="first"]`,
	`input[id*="first"]`,
	`input[autocomplete="given-name"]`,
}

var lastNameCandidates = []string{
	`input[name*="last"]`,
	`input[id*="last"]`,
	`input[autocomplete="family-name"]`,
}

var emailCandidates = []string{
	`input[type="email"]`,
	`input[name*="email"]`,
	`input[id*="email"]`,
	`input[autocomplete="email"]`,
}

var phoneCandidates = []string{
	`input[type="tel"]`,
	`input[name*="phone"]`,
	`input[id*="phone"]`,
}

// nextButtonCandidates advance between form pages.
var nextButtonCandidates = []string{
	`button[type="submit"]`,
	`button[data-action="next"]`,
	`button.btn-primary`,
	`button.usa-button`,
	`input[type="submit"][value="Next"]`,
	`input[type="submit"][value="Continue"]`,
	`a.button--next`,
}

var nextButtonTexts = []string{"next", "continue"}

// submitButtonCandidates finish the flow on the review page.
var submitButtonCandidates = []string{
	`button[type="submit"][name*="submit"]`,
	`button[data-action="submit"]`,
	`input[type="submit"][value*="Submit"]`,
	`button.btn-primary[type="submit"]`,
	`button[type="submit"]`,
}

var submitButtonTexts = []string{"submit", "finish", "send report", "complete"}
