package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidWindow marks a requested fetch window the vendor cannot serve.
// Raised client-side, before any network call.
var ErrInvalidWindow = eris.New("invalid fetch window")

// Maximum queryable spans, enforced by the vendor APIs.
const (
	indiamartMaxSpan = 7 * 24 * time.Hour
)

// Window is an explicit fetch time range. A nil *Window means the
// vendor-implicit window: IndiaMART infers "since last successful call,
// capped at 24h" server-side; TradeIndia scheduled runs use today.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks ordering and the vendor-specific maximum span.
// IndiaMART accepts up to 7 days with minute precision; TradeIndia is
// date-granular and limited to a single calendar day.
func (w Window) Validate(v Vendor) error {
	switch v {
	case VendorIndiaMART:
		if !w.Start.Before(w.End) {
			return eris.Wrap(ErrInvalidWindow, "start must be before end")
		}
		if w.End.Sub(w.Start) > indiamartMaxSpan {
			return eris.Wrap(ErrInvalidWindow, "range cannot exceed 7 days")
		}
	case VendorTradeIndia:
		start, end := dateOnly(w.Start), dateOnly(w.End)
		if start.After(end) {
			return eris.Wrap(ErrInvalidWindow, "start date must not be after end date")
		}
		if end.Sub(start) > 0 {
			return eris.Wrap(ErrInvalidWindow, "range cannot exceed 1 day")
		}
	default:
		return eris.Errorf("unknown vendor %q", v)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
