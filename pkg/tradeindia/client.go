// Package tradeindia provides a client for the TradeIndia my_inquiry API,
// which returns RFI (request for information) inquiries for a seller.
package tradeindia

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/leadsync/pkg/vendorapi"
)

const vendorName = "TradeIndia"

// dateFormat is the from_date/to_date layout.
const dateFormat = "2006-01-02"

// FlexString tolerates the API returning a field as either a JSON string
// or a bare number (rfi_id does both).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Inquiry is one RFI record as returned by the API.
type Inquiry struct {
	RFIID         FlexString `json:"rfi_id"`
	Subject       string     `json:"subject"`
	Message       string     `json:"message"`
	ProductName   string     `json:"product_name"`
	InquiryType   string     `json:"inquiry_type"`
	Source        string     `json:"source"`
	GeneratedDate string     `json:"generated_date"`
	GeneratedTime string     `json:"generated_time"`
	SenderName    string     `json:"sender_name"`
	SenderCo      string     `json:"sender_co"`
	SenderEmail   string     `json:"sender_email"`
	SenderMobile  string     `json:"sender_mobile"`
	SenderCity    string     `json:"sender_city"`
	SenderState   string     `json:"sender_state"`
	SenderCountry string     `json:"sender_country"`
	Address       string     `json:"address"`
}

// Credentials is the three-part secret bundle for the my_inquiry API.
type Credentials struct {
	UserID    string
	ProfileID string
	Key       string
}

// Client defines the TradeIndia API operations used by the pipeline.
type Client interface {
	// FetchInquiries performs a single call over [from, to] (date
	// granularity). The API caps ranges at one calendar day; that check is
	// the caller's responsibility. No pagination, no retry.
	FetchInquiries(ctx context.Context, from, to time.Time, limit int) ([]Inquiry, error)
	// Check performs a diagnostic call for today and returns the inquiry
	// count. It writes nothing and uses a short timeout.
	Check(ctx context.Context) (int, error)
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
	creds   Credentials
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new TradeIndia client.
func NewClient(creds Credentials, opts ...Option) Client {
	c := &httpClient{
		creds:   creds,
		baseURL: "https://www.tradeindia.com",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchInquiries(ctx context.Context, from, to time.Time, limit int) ([]Inquiry, error) {
	return c.call(ctx, from, to, limit)
}

func (c *httpClient) Check(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	today := time.Now()
	inquiries, err := c.call(ctx, today, today, 10)
	if err != nil {
		return 0, err
	}
	return len(inquiries), nil
}

func (c *httpClient) call(ctx context.Context, from, to time.Time, limit int) ([]Inquiry, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &vendorapi.TransportError{Vendor: vendorName, Err: err}
		}
	}

	q := url.Values{}
	q.Set("userid", c.creds.UserID)
	q.Set("profile_id", c.creds.ProfileID)
	q.Set("key", c.creds.Key)
	q.Set("from_date", from.Format(dateFormat))
	q.Set("to_date", to.Format(dateFormat))
	q.Set("limit", strconv.Itoa(limit))

	reqURL := c.baseURL + "/utils/my_inquiry.html?" + q.Encode()
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

	// The response is a bare array. The API occasionally returns a non-array
	// JSON value to mean "no data"; that is zero records, not an error.
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &vendorapi.MalformedResponseError{Vendor: vendorName, Err: err}
	}
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}

	var inquiries []Inquiry
	if err := json.Unmarshal(trimmed, &inquiries); err != nil {
		return nil, &vendorapi.MalformedResponseError{Vendor: vendorName, Err: err}
	}
	return inquiries, nil
}

func trimLeadingSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\n' || b[0] == '\r') {
		b = b[1:]
	}
	return b
}
