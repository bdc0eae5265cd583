// pkg/report/tracking.go
package report

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// trackingPatterns are tried in order against confirmation-page text. The
// earlier patterns are anchored to labels the city actually renders; the
// later ones are progressively looser digit matches.
var trackingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"serviceRequestNumber":\s*"(\d+)"`),
	regexp.MustCompile(`(?i)serviceRequestNumber["']?\s*:\s*["']?(\d+)`),
	regexp.MustCompile(`(?i)Service Request[:\s#]+(\d+)`),
	regexp.MustCompile(`(?i)Request[:\s#]+(\d+)`),
	regexp.MustCompile(`(?i)Tracking[:\s#]+(\d+)`),
	regexp.MustCompile(`(?i)Case[:\s#]+(\d+)`),
	regexp.MustCompile(`(?i)SR[:\s#]+(\d+)`),
	regexp.MustCompile(`(?i)number["']?\s*:\s*["']?(\d{10,})`),
	// 12 digits is the SF service request number format.
	regexp.MustCompile(`(\d{12})`),
	regexp.MustCompile(`(\d{10,15})`),
}

// minTrackingDigits rejects short digit runs (dates, zip codes) that the
// loose patterns would otherwise match.
const minTrackingDigits = 8

// ExtractTrackingNumber scans confirmation-page text for a service request
// number. Returns the number and true on a hit.
func ExtractTrackingNumber(text string) (string, bool) {
	for _, p := range trackingPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m[1]) >= minTrackingDigits {
			return m[1], true
		}
	}
	return "", false
}

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"requestAddress":\s*"([^"]+)"`),
	regexp.MustCompile(`requestAddress:\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)Address:\s*([^\n]+)`),
}

// ExtractAddress scans confirmation-page text for the address the city
// resolved the report to.
func ExtractAddress(text string) (string, bool) {
	for _, p := range addressPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// cityPrefixes keys tracking-number prefixes by city.
var cityPrefixes = map[string]string{
	"San Francisco": "SF311",
	"Oakland":       "OAK311",
	"Berkeley":      "BERK311",
}

// GenerateTrackingNumber builds a PREFIX-YEAR-NNNNNN style number for
// submission paths that do not return one (demo endpoints, degraded runs).
func GenerateTrackingNumber(city string) string {
	prefix, ok := cityPrefixes[city]
	if !ok {
		prefix = "CITY311"
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, time.Now().Year(), rand.Intn(900000)+100000)
}

// FallbackTrackingNumber derives a stable number from the report ID so a
// failed run still hands the caller something traceable.
func FallbackTrackingNumber(reportID string) string {
	suffix := strings.ReplaceAll(reportID, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("DEMO311-%d-%s", time.Now().Year(), strings.ToUpper(suffix))
}
