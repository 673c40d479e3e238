// Package indiamart provides a client for the IndiaMART Pull API
// (crmListing v2), which returns buyer inquiries for a seller account.
package indiamart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/leadsync/pkg/vendorapi"
)

const vendorName = "IndiaMART"

// The Pull API takes and reports timestamps in Indian Standard Time.
var ist = time.FixedZone("IST", 5*3600+30*60)

// timeFormat is the Pull API's start_time/end_time layout: DD-MM-YYYYHH:MM:SS
// with no separator between date and time.
const timeFormat = "02-01-200615:04:05"

// Record is one buyer inquiry as returned by the Pull API.
type Record struct {
	UniqueQueryID    string `json:"UNIQUE_QUERY_ID"`
	QueryTime        string `json:"QUERY_TIME"`
	QueryType        string `json:"QUERY_TYPE"`
	QueryMessage     string `json:"QUERY_MESSAGE"`
	QueryProductName string `json:"QUERY_PRODUCT_NAME"`
	QueryMcatName    string `json:"QUERY_MCAT_NAME"`
	Subject          string `json:"SUBJECT"`
	SenderName       string `json:"SENDER_NAME"`
	SenderCompany    string `json:"SENDER_COMPANY"`
	SenderEmail      string `json:"SENDER_EMAIL"`
	SenderMobile     string `json:"SENDER_MOBILE"`
	SenderAddress    string `json:"SENDER_ADDRESS"`
	SenderCity       string `json:"SENDER_CITY"`
	SenderState      string `json:"SENDER_STATE"`
	SenderPincode    string `json:"SENDER_PINCODE"`
	SenderCountryISO string `json:"SENDER_COUNTRY_ISO"`
}

// envelope is the Pull API response wrapper. RESPONSE is left raw because
// the API returns a non-array value alongside STATUS=FAILURE.
type envelope struct {
	Status   string          `json:"STATUS"`
	Message  string          `json:"MESSAGE"`
	Response json.RawMessage `json:"RESPONSE"`
}

// Window is an explicit start/end query range in UTC. A nil *Window omits
// the time parameters entirely; the API then returns inquiries since the
// last successful call, capped at 24 hours.
type Window struct {
	Start time.Time
	End   time.Time
}

// Client defines the IndiaMART Pull API operations used by the pipeline.
type Client interface {
	// FetchLeads performs a single listing call. No pagination, no retry.
	FetchLeads(ctx context.Context, win *Window) ([]Record, error)
	// Check performs a diagnostic call and returns the vendor's message.
	// It writes nothing and uses a short timeout.
	Check(ctx context.Context) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outbound calls per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new IndiaMART Pull API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://mapi.indiamart.com",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchLeads(ctx context.Context, win *Window) ([]Record, error) {
	return c.listing(ctx, win)
}

func (c *httpClient) Check(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	env, err := c.call(ctx, nil)
	if err != nil {
		return "", err
	}
	if env.Message == "" {
		return "Successfully connected!", nil
	}
	return env.Message, nil
}

func (c *httpClient) listing(ctx context.Context, win *Window) ([]Record, error) {
	env, err := c.call(ctx, win)
	if err != nil {
		return nil, err
	}

	if len(env.Response) == 0 || string(env.Response) == "null" {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(env.Response, &records); err != nil {
		return nil, &vendorapi.MalformedResponseError{Vendor: vendorName, Err: err}
	}
	return records, nil
}

func (c *httpClient) call(ctx context.Context, win *Window) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &vendorapi.TransportError{Vendor: vendorName, Err: err}
		}
	}

	q := url.Values{}
	q.Set("glusr_crm_key", c.apiKey)
	if win != nil {
		q.Set("start_time", win.Start.In(ist).Format(timeFormat))
		q.Set("end_time", win.End.In(ist).Format(timeFormat))
	}

	reqURL := c.baseURL + "/wservce/crm/crmListing/v2/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &vendorapi.TransportError{Vendor: vendorName, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &vendorapi.TransportError{Vendor: vendorName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &vendorapi.TransportError{Vendor: vendorName, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &vendorapi.TransportError{Vendor: vendorName, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &vendorapi.MalformedResponseError{Vendor: vendorName, Err: err}
	}
	if env.Status == "FAILURE" {
		return nil, &vendorapi.APIError{Vendor: vendorName, Message: env.Message}
	}
	return &env, nil
}
