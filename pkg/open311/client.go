// pkg/open311/client.go
package open311

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/v0idlock/civreport-cli/internal/config"
	"github.com/v0idlock/civreport-cli/pkg/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoEndpoint is returned when no GeoReport endpoint is configured for the
// report's city. Callers fall back to the browser workflow.
var ErrNoEndpoint = errors.New("no open311 endpoint configured for city")

// ServiceRequest is the city's acknowledgement of a submitted request.
type ServiceRequest struct {
	ID     string `json:"service_request_id"`
	Token  string `json:"token,omitempty"`
	Notice string `json:"service_notice,omitempty"`
}

// Client submits service requests through GeoReport v2 endpoints. One client
// serves every configured city; a shared limiter keeps the submission rate
// polite across batch runs.
type Client struct {
	httpClient *http.Client
	endpoints  map[string]config.Open311Endpoint
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates an Open311 client from configuration.
func New(cfg config.Open311Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoints:  cfg.Endpoints,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:     logger.Named("open311"),
	}
}

// HasEndpoint reports whether a GeoReport endpoint is configured for the city.
func (c *Client) HasEndpoint(city string) bool {
	_, ok := c.endpoints[city]
	return ok
}

// Submit posts the report as a service request to the city's endpoint and
// returns the tracking acknowledgement.
func (c *Client) Submit(ctx context.Context, rep *report.Report) (*ServiceRequest, error) {
	ep, ok := c.endpoints[rep.City]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoEndpoint, rep.City)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("service_code", report.ServiceCode(rep.Type))
	form.Set("description", rep.Description)
	form.Set("lat", strconv.FormatFloat(rep.Latitude, 'f', -1, 64))
	form.Set("long", strconv.FormatFloat(rep.Longitude, 'f', -1, 64))
	form.Set("email", rep.Contact.Email)
	if rep.Address != "" {
		form.Set("address_string", rep.Address)
	}
	if rep.Contact.FirstName != "" {
		form.Set("first_name", rep.Contact.FirstName)
	}
	if rep.Contact.LastName != "" {
		form.Set("last_name", rep.Contact.LastName)
	}
	if rep.Contact.Phone != "" {
		form.Set("phone", rep.Contact.Phone)
	}
	if ep.APIKey != "" {
		form.Set("api_key", ep.APIKey)
	}
	if ep.Jurisdiction != "" {
		form.Set("jurisdiction_id", ep.Jurisdiction)
	}

	endpoint := requestsURL(ep)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Info("Submitting service request",
		zap.String("city", rep.City),
		zap.String("service_code", form.Get("service_code")),
		zap.String("endpoint", endpoint),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading service request response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("service request rejected: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var sr *ServiceRequest
	if ep.Format == "xml" {
		sr, err = parseXMLResponse(body)
	} else {
		sr, err = parseJSONResponse(body)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("Service request accepted", zap.String("service_request_id", sr.ID))
	return sr, nil
}

// requestsURL appends the GeoReport requests resource in the configured
// format, leaving fully-specified URLs alone.
func requestsURL(ep config.Open311Endpoint) string {
	u := strings.TrimSuffix(ep.URL, "/")
	if strings.HasSuffix(u, ".json") || strings.HasSuffix(u, ".xml") {
		return u
	}
	if ep.Format == "xml" {
		return u + "/requests.xml"
	}
	return u + "/requests.json"
}

// parseJSONResponse handles the GeoReport JSON body: an array with one
// request object.
func parseJSONResponse(body []byte) (*ServiceRequest, error) {
	var reqs []ServiceRequest
	if err := json.Unmarshal(body, &reqs); err != nil {
		return nil, fmt.Errorf("decoding service request response: %w", err)
	}
	if len(reqs) == 0 || reqs[0].ID == "" && reqs[0].Token == "" {
		return nil, fmt.Errorf("service request response carried no request id")
	}
	return &reqs[0], nil
}

// parseXMLResponse handles the GeoReport XML body:
// <service_requests><request><service_request_id>...</service_request_id>...
func parseXMLResponse(body []byte) (*ServiceRequest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("decoding service request XML: %w", err)
	}

	request := doc.FindElement("//service_requests/request")
	if request == nil {
		request = doc.FindElement("//request")
	}
	if request == nil {
		return nil, fmt.Errorf("service request XML carried no request element")
	}

	sr := &ServiceRequest{}
	if el := request.FindElement("service_request_id"); el != nil {
		sr.ID = strings.TrimSpace(el.Text())
	}
	if el := request.FindElement("token"); el != nil {
		sr.Token = strings.TrimSpace(el.Text())
	}
	if el := request.FindElement("service_notice"); el != nil {
		sr.Notice = strings.TrimSpace(el.Text())
	}
	if sr.ID == "" && sr.Token == "" {
		return nil, fmt.Errorf("service request XML carried no request id")
	}
	return sr, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
