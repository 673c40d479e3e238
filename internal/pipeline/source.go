package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync/internal/config"
	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/normalize"
	"github.com/sells-group/leadsync/pkg/indiamart"
	"github.com/sells-group/leadsync/pkg/tradeindia"
)

// ErrCredentialsMissing means the vendor's credential bundle is not
// configured. Raised before any network call.
var ErrCredentialsMissing = eris.New("api credentials not configured")

// RawLead is a single fetched vendor record awaiting normalization.
type RawLead interface {
	// SenderName identifies the record in skip/error messages.
	SenderName() string
	// Normalize maps the record into a canonical lead, or returns
	// normalize.ErrMissingID when the vendor unique ID is absent.
	Normalize(ctx context.Context) (*model.Lead, error)
}

// Source is one vendor's fetch-and-normalize surface, consumed by the
// Pipeline. Implementations are stateless and safe to reuse across runs.
type Source interface {
	Vendor() model.Vendor
	CheckCredentials() error
	ValidateWindow(win model.Window) error
	// Fetch performs the single listing call. A nil window means the
	// vendor-implicit range (IndiaMART: since last call; TradeIndia: today).
	Fetch(ctx context.Context, win *model.Window) ([]RawLead, error)
	// DedupOnBackfill reports whether manual runs check for duplicates.
	// IndiaMART does, to guard overlapping backfill ranges; TradeIndia
	// deliberately re-inserts everything in range.
	DedupOnBackfill() bool
}

// IndiaMARTSource adapts the IndiaMART Pull API client.
type IndiaMARTSource struct {
	cfg    config.IndiaMARTConfig
	client indiamart.Client
	norm   *normalize.Normalizer
}

// NewIndiaMARTSource creates the IndiaMART pipeline source.
func NewIndiaMARTSource(cfg config.IndiaMARTConfig, client indiamart.Client, norm *normalize.Normalizer) *IndiaMARTSource {
	return &IndiaMARTSource{cfg: cfg, client: client, norm: norm}
}

func (s *IndiaMARTSource) Vendor() model.Vendor { return model.VendorIndiaMART }

func (s *IndiaMARTSource) CheckCredentials() error {
	if !s.cfg.Configured() {
		return eris.Wrap(ErrCredentialsMissing, "IndiaMART API key is not set")
	}
	return nil
}

func (s *IndiaMARTSource) ValidateWindow(win model.Window) error {
	return win.Validate(model.VendorIndiaMART)
}

func (s *IndiaMARTSource) Fetch(ctx context.Context, win *model.Window) ([]RawLead, error) {
	var cw *indiamart.Window
	if win != nil {
		cw = &indiamart.Window{Start: win.Start, End: win.End}
	}
	records, err := s.client.FetchLeads(ctx, cw)
	if err != nil {
		return nil, err
	}
	raws := make([]RawLead, len(records))
	for i, rec := range records {
		raws[i] = indiamartRaw{rec: rec, norm: s.norm}
	}
	return raws, nil
}

func (s *IndiaMARTSource) DedupOnBackfill() bool { return true }

type indiamartRaw struct {
	rec  indiamart.Record
	norm *normalize.Normalizer
}

func (r indiamartRaw) SenderName() string {
	if r.rec.SenderName == "" {
		return "Unknown"
	}
	return r.rec.SenderName
}

func (r indiamartRaw) Normalize(ctx context.Context) (*model.Lead, error) {
	return r.norm.FromIndiaMART(ctx, r.rec)
}

// TradeIndiaSource adapts the TradeIndia my_inquiry client.
type TradeIndiaSource struct {
	cfg    config.TradeIndiaConfig
	client tradeindia.Client
	norm   *normalize.Normalizer
	now    func() time.Time
}

// NewTradeIndiaSource creates the TradeIndia pipeline source.
func NewTradeIndiaSource(cfg config.TradeIndiaConfig, client tradeindia.Client, norm *normalize.Normalizer) *TradeIndiaSource {
	return &TradeIndiaSource{cfg: cfg, client: client, norm: norm, now: time.Now}
}

func (s *TradeIndiaSource) Vendor() model.Vendor { return model.VendorTradeIndia }

func (s *TradeIndiaSource) CheckCredentials() error {
	if !s.cfg.Configured() {
		return eris.Wrap(ErrCredentialsMissing, "TradeIndia userid, profile_id, and key must all be set")
	}
	return nil
}

func (s *TradeIndiaSource) ValidateWindow(win model.Window) error {
	return win.Validate(model.VendorTradeIndia)
}

func (s *TradeIndiaSource) Fetch(ctx context.Context, win *model.Window) ([]RawLead, error) {
	// Scheduled runs query today on both bounds. Inquiries attributed to
	// the prior day near midnight are picked up by a manual backfill.
	from, to := s.now(), s.now()
	if win != nil {
		from, to = win.Start, win.End
	}

	limit := s.cfg.Limit
	if limit <= 0 {
		limit = 100
	}

	inquiries, err := s.client.FetchInquiries(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	raws := make([]RawLead, len(inquiries))
	for i, inq := range inquiries {
		raws[i] = tradeindiaRaw{inq: inq, norm: s.norm}
	}
	return raws, nil
}

func (s *TradeIndiaSource) DedupOnBackfill() bool { return false }

type tradeindiaRaw struct {
	inq  tradeindia.Inquiry
	norm *normalize.Normalizer
}

func (r tradeindiaRaw) SenderName() string {
	if r.inq.SenderName == "" {
		return "Unknown"
	}
	return r.inq.SenderName
}

func (r tradeindiaRaw) Normalize(ctx context.Context) (*model.Lead, error) {
	return r.norm.FromTradeIndia(ctx, r.inq)
}
