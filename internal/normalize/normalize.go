// Package normalize maps raw vendor inquiry records into canonical CRM
// leads. Mapping is best-effort: optional fields are set only when the
// source value is present, and reference lookups that find nothing leave
// the field unset rather than creating reference data.
package normalize

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingID marks a record whose vendor unique identifier is absent or
// empty. Such records are never persisted and are counted separately from
// duplicates and failures.
var ErrMissingID = eris.New("record has no vendor unique id")

// RefResolver is the subset of the lead store the normalizer needs for
// reference resolution. Only the source entity is create-if-missing; states
// and countries are lookup-only.
type RefResolver interface {
	GetOrCreateSource(ctx context.Context, name string) (string, error)
	FindStateByName(ctx context.Context, name string) (string, error)
	FindCountryByCode(ctx context.Context, code string) (string, error)
	FindCountryByName(ctx context.Context, name string) (string, error)
}

// Normalizer converts vendor records into model.Lead values.
type Normalizer struct {
	refs RefResolver
}

// New creates a Normalizer backed by the given reference resolver.
func New(refs RefResolver) *Normalizer {
	return &Normalizer{refs: refs}
}

// separator is the literal divider line used in lead descriptions.
var separator = strings.Repeat("=", 50)

// orNA substitutes "N/A" for empty template values.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
