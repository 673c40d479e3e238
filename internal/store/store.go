// Package store persists canonical leads, fetch run logs, contacts, and
// the reference data (sources, countries, states) used during
// normalization. Two backends are provided: Postgres (pgx) and SQLite.
package store

import (
	"context"

	"github.com/sells-group/leadsync/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Vendor model.Vendor `json:"vendor,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// LogFilter specifies criteria for listing fetch run logs.
type LogFilter struct {
	Vendor model.Vendor `json:"vendor,omitempty"`
	Limit  int          `json:"limit,omitempty"`
}

// Store defines the persistence interface for the lead ingestion pipeline.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (string, error)
	// LeadExists reports whether a lead with this vendor-scoped unique ID
	// is already present. The two vendors' ID namespaces never cross-match.
	LeadExists(ctx context.Context, vendor model.Vendor, vendorUID string) (bool, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Reference data. GetOrCreateSource is an atomic upsert, safe under
	// concurrent callers; the lookups return "" when nothing matches.
	GetOrCreateSource(ctx context.Context, name string) (string, error)
	FindStateByName(ctx context.Context, name string) (string, error)
	FindCountryByCode(ctx context.Context, code string) (string, error)
	FindCountryByName(ctx context.Context, name string) (string, error)

	// Run log. One row per pipeline invocation, never mutated.
	CreateFetchLog(ctx context.Context, log model.FetchLog) error
	ListFetchLogs(ctx context.Context, filter LogFilter) ([]model.FetchLog, error)

	// Contacts
	CreateContact(ctx context.Context, contact model.Contact, principal string) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
