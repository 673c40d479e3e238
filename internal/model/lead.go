// Package model defines the canonical lead records and run bookkeeping types
// shared across the ingestion pipeline, store, and CLI.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Vendor identifies a marketplace platform we pull inquiries from.
// Vendor unique-ID namespaces are disjoint: the same identifier value from
// two vendors never cross-matches.
type Vendor string

const (
	VendorIndiaMART  Vendor = "indiamart"
	VendorTradeIndia Vendor = "tradeindia"
)

// ParseVendor converts a CLI/HTTP argument into a Vendor.
func ParseVendor(s string) (Vendor, error) {
	switch Vendor(s) {
	case VendorIndiaMART, VendorTradeIndia:
		return Vendor(s), nil
	default:
		return "", eris.Errorf("unknown vendor %q (expected indiamart or tradeindia)", s)
	}
}

// SourceName is the marketing source entity name for leads from this vendor.
func (v Vendor) SourceName() string {
	switch v {
	case VendorIndiaMART:
		return "IndiaMART"
	case VendorTradeIndia:
		return "TradeIndia"
	default:
		return string(v)
	}
}

// Lead is the canonical CRM lead record written to the store.
//
// Optional fields are pointers: nil means the vendor record did not carry
// the value, which is distinct from an empty string. Owner is always nil at
// creation; assignment is a downstream concern.
type Lead struct {
	ID             string    `json:"id"`
	Vendor         Vendor    `json:"vendor"`
	VendorUniqueID string    `json:"vendor_unique_id"`
	DisplayName    string    `json:"display_name"`
	ContactName    string    `json:"contact_name"`
	CompanyName    *string   `json:"company_name,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	City           *string   `json:"city,omitempty"`
	Street         *string   `json:"street,omitempty"`
	PostalCode     *string   `json:"postal_code,omitempty"`
	StateID        *string   `json:"state_id,omitempty"`
	CountryID      *string   `json:"country_id,omitempty"`
	Probability    int       `json:"probability"`
	QueryType      *string   `json:"query_type,omitempty"`
	Description    string    `json:"description"`
	SourceID       string    `json:"source_id"`
	Owner          *string   `json:"owner,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStatus is the final disposition of a fetch invocation.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// FetchLog is the audit record written exactly once per pipeline
// invocation, whether the run succeeded, partially failed, or aborted.
// Rows are never mutated after creation.
type FetchLog struct {
	ID           string    `json:"id"`
	Vendor       Vendor    `json:"vendor"`
	IsManual     bool      `json:"is_manual"`
	LeadsFetched int       `json:"leads_fetched"`
	LeadsCreated int       `json:"leads_created"`
	Status       RunStatus `json:"status"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// Contact is a CRM contact record. Unlike leads, contacts created without
// an owner are assigned to the acting principal at creation time (see
// store.ApplyContactDefaults).
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Owner     *string   `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty. Used by the
// normalizer for best-effort optional field mapping.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
