// pkg/open311/client_test.go
package open311

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/pkg/report"
)

func testReport() *report.Report {
	r := report.New(report.DamageRoadCrack, "Pothole at the crosswalk", 37.7749, -122.4194)
	r.City = "San Francisco"
	r.Address = "123 Market St, San Francisco, California 94103"
	r.Contact = report.Contact{
		FirstName: "Alex",
		LastName:  "Rivera",
		Email:     "alex.rivera@example.com",
		Phone:     "415-555-0100",
	}
	return r
}

func newTestClient(endpoints map[string]config.Open311Endpoint) *Client {
	return New(config.Open311Config{
		Endpoints: endpoints,
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}, zap.NewNop())
}

func TestSubmitJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/requests.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "street-pothole", r.PostForm.Get("service_code"))
		assert.Equal(t, "Pothole at the crosswalk", r.PostForm.Get("description"))
		assert.Equal(t, "37.7749", r.PostForm.Get("lat"))
		assert.Equal(t, "-122.4194", r.PostForm.Get("long"))
		assert.Equal(t, "alex.rivera@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "secret-key", r.PostForm.Get("api_key"))
		assert.Equal(t, "sfgov.org", r.PostForm.Get("jurisdiction_id"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"service_request_id": "101002345678", "service_notice": "expect 72 hours"}]`))
	}))
	defer server.Close()

	client := newTestClient(map[string]config.Open311Endpoint{
		"San Francisco": {
			URL:          server.URL + "/v2",
			APIKey:       "secret-key",
			Format:       "json",
			Jurisdiction: "sfgov.org",
		},
	})

	sr, err := client.Submit(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "101002345678", sr.ID)
	assert.Equal(t, "expect 72 hours", sr.Notice)
}

func TestSubmitXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/requests.xml", r.URL.Path)
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<service_requests>
	<request>
		<service_request_id>293944</service_request_id>
		<token>ee99</token>
		<service_notice>The City will inspect within 72 hours.</service_notice>
	</request>
</service_requests>`))
	}))
	defer server.Close()

	client := newTestClient(map[string]config.Open311Endpoint{
		"San Francisco": {URL: server.URL + "/v2", Format: "xml"},
	})

	sr, err := client.Submit(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "293944", sr.ID)
	assert.Equal(t, "ee99", sr.Token)
	assert.Equal(t, "The City will inspect within 72 hours.", sr.Notice)
}

func TestSubmitNoEndpoint(t *testing.T) {
	client := newTestClient(nil)
	_, err := client.Submit(context.Background(), testReport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEndpoint))
	assert.False(t, client.HasEndpoint("San Francisco"))
}

func TestSubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`[{"code": 403, "description": "invalid api_key"}]`))
	}))
	defer server.Close()

	client := newTestClient(map[string]config.Open311Endpoint{
		"San Francisco": {URL: server.URL},
	})

	_, err := client.Submit(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Contains(t, err.Error(), "invalid api_key")
}

func TestSubmitEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(map[string]config.Open311Endpoint{
		"San Francisco": {URL: server.URL},
	})

	_, err := client.Submit(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no request id")
}

func TestRequestsURL(t *testing.T) {
	testCases := []struct {
		name string
		ep   config.Open311Endpoint
		want string
	}{
		{"json default", config.Open311Endpoint{URL: "https://api.city.gov/v2"}, "https://api.city.gov/v2/requests.json"},
		{"trailing slash", config.Open311Endpoint{URL: "https://api.city.gov/v2/"}, "https://api.city.gov/v2/requests.json"},
		{"xml format", config.Open311Endpoint{URL: "https://api.city.gov/v2", Format: "xml"}, "https://api.city.gov/v2/requests.xml"},
		{"fully specified", config.Open311Endpoint{URL: "https://api.city.gov/v2/requests.json"}, "https://api.city.gov/v2/requests.json"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, requestsURL(tc.ep))
		})
	}
}
