// cmd/submit_test.go
package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/pkg/geocode"
	"github.com/v0idlock/civreport-cli/pkg/report"
	"github.com/v0idlock/civreport-cli/pkg/results"
)

func TestBuildReportFromFlags(t *testing.T) {
	rep, err := buildReport("", "pothole", "Deep pothole in the bike lane", 37.77, -122.41,
		"", "high", "alex@example.com", "Alex", "Rivera", "415-555-0100")
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, report.DamageRoadCrack, rep.Type)
	assert.Equal(t, "Deep pothole in the bike lane", rep.Description)
	assert.Equal(t, 37.77, rep.Latitude)
	assert.Equal(t, -122.41, rep.Longitude)
	assert.Equal(t, "high", rep.Severity)
	assert.Equal(t, "alex@example.com", rep.Contact.Email)
	require.NoError(t, rep.Validate())
}

func TestBuildReportFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "Graffiti",
		"description": "Tags on the retaining wall",
		"latitude": 37.76,
		"longitude": -122.42,
		"city": "San Francisco",
		"contact": {"email": "alex@example.com"}
	}`), 0o644))

	rep, err := buildReport(path, "", "", 0, 0, "", "", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, report.DamageGraffiti, rep.Type)
	assert.Equal(t, "San Francisco", rep.City)
	assert.NotEmpty(t, rep.ID, "file reports without an id get a fresh one")
	require.NoError(t, rep.Validate())
}

func TestBuildReportFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "Graffiti",
		"description": "from file",
		"latitude": 37.76,
		"longitude": -122.42,
		"contact": {"email": "file@example.com"}
	}`), 0o644))

	rep, err := buildReport(path, "Fallen Tree", "from flags", 0, 0, "", "", "flags@example.com", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, report.DamageFallenTree, rep.Type)
	assert.Equal(t, "from flags", rep.Description)
	assert.Equal(t, "flags@example.com", rep.Contact.Email)
	assert.Equal(t, 37.76, rep.Latitude, "coordinates from the file survive")
}

func TestBuildReportNormalizesFileType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "pothole",
		"description": "Pothole by the hydrant",
		"latitude": 37.77,
		"longitude": -122.41,
		"contact": {"email": "alex@example.com"}
	}`), 0o644))

	rep, err := buildReport(path, "", "", 0, 0, "", "", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, report.DamageRoadCrack, rep.Type)

	_, ok := report.FormURL(rep.Type)
	assert.True(t, ok, "normalized file types must resolve to a form URL")
}

func TestBuildReportMissingFile(t *testing.T) {
	_, err := buildReport("/nonexistent/report.json", "", "", 0, 0, "", "", "", "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading report file")
}

func TestResolveAddressSharesRateLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "x", "address": {"road": "Main St", "city": "San Francisco", "state": "California"}}`))
	}))
	defer server.Close()

	// One client for all workers: 10 req/s across 4 concurrent lookups
	// forces at least ~300ms of pacing. Per-worker limiters would grant
	// every burst token immediately and finish in microseconds.
	gc := geocode.New(config.GeocoderConfig{
		Endpoint:  server.URL,
		UserAgent: "civreport-cli-test/1.0",
		Timeout:   5 * time.Second,
		RateLimit: 10,
	}, zap.NewNop())

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep := report.New(report.DamageRoadCrack, "pothole", 37.77, -122.41)
			resolveAddress(context.Background(), gc, rep, zap.NewNop())
			assert.Equal(t, "San Francisco", rep.City)
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond,
		"concurrent lookups must be paced by the shared limiter")
}

func TestNewEnvelope(t *testing.T) {
	rep := report.New(report.DamageStreetLight, "Dark streetlight on the corner", 37.78, -122.40)
	env := newEnvelope(rep, results.MethodAPI)

	assert.NotEmpty(t, env.SubmissionID)
	assert.NotEqual(t, rep.ID, env.SubmissionID, "submission id is distinct from the report id")
	assert.Equal(t, results.MethodAPI, env.Method)
	assert.Equal(t, report.Department(report.DamageStreetLight), env.Department)
	assert.False(t, env.StartedAt.IsZero())
	assert.Same(t, rep, env.Report)
}
