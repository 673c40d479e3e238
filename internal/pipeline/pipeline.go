// Package pipeline orchestrates one vendor's lead ingestion: fetch,
// normalize, deduplicate, persist, and write the audit log. Runs are
// sequential; the two vendors' pipelines are independent and may run
// concurrently with each other.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/normalize"
	"github.com/sells-group/leadsync/internal/store"
)

// maxSampleErrors is how many per-record error messages are attached to a
// manual run's log message.
const maxSampleErrors = 5

// errTruncateLen bounds a single sampled error message.
const errTruncateLen = 50

// Mode selects between a scheduled (unattended) run and a manual backfill
// over an explicit window.
type Mode struct {
	Manual bool
	Window *model.Window
}

// Scheduled is an unattended run over the vendor-implicit window.
func Scheduled() Mode { return Mode{} }

// Backfill is a user-triggered run over an explicit window.
func Backfill(win model.Window) Mode { return Mode{Manual: true, Window: &win} }

// Summary aggregates one invocation's outcome. Exactly one FetchLog row is
// derived from it, on every exit path.
type Summary struct {
	Vendor      model.Vendor    `json:"vendor"`
	Manual      bool            `json:"manual"`
	Fetched     int             `json:"fetched"`
	Created     int             `json:"created"`
	Duplicates  int             `json:"skipped_duplicate"`
	SkippedNoID int             `json:"skipped_no_id"`
	Failed      int             `json:"failed"`
	Status      model.RunStatus `json:"status"`
	Message     string          `json:"message"`

	errs []string
}

func (s *Summary) addError(msg string) {
	s.errs = append(s.errs, msg)
}

// message renders the run log message. Manual runs get the multi-line
// summary with up to five sample errors; scheduled runs get one line.
func (s *Summary) message() string {
	if !s.Manual {
		msg := fmt.Sprintf("Created %d new leads (API returned %d, %d duplicates, %d without ID)",
			s.Created, s.Fetched, s.Duplicates, s.SkippedNoID)
		if s.Failed > 0 {
			msg += fmt.Sprintf(", %d failed", s.Failed)
		}
		return msg
	}

	msg := fmt.Sprintf(
		"API returned %d leads\nCreated: %d\nSkipped (duplicate): %d\nSkipped (no ID): %d\nFailed: %d",
		s.Fetched, s.Created, s.Duplicates, s.SkippedNoID, s.Failed,
	)
	if len(s.errs) > 0 {
		samples := s.errs
		if len(samples) > maxSampleErrors {
			samples = samples[:maxSampleErrors]
		}
		msg += "\n\nErrors:\n" + strings.Join(samples, "\n")
	}
	return msg
}

// Pipeline runs one vendor's ingestion.
type Pipeline struct {
	source Source
	store  store.Store
}

// New creates a Pipeline for the given source and store.
func New(source Source, st store.Store) *Pipeline {
	return &Pipeline{source: source, store: st}
}

// Run executes one invocation. The returned Summary is never nil.
//
// Manual runs surface the abort error to the caller; scheduled runs
// swallow it — their only visibility is the FetchLog row — and never
// return a non-nil error. In both modes the FetchLog write is an
// unconditional finalization step.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (sum *Summary, err error) {
	log := zap.L().With(
		zap.String("vendor", string(p.source.Vendor())),
		zap.Bool("manual", mode.Manual),
	)
	sum = &Summary{Vendor: p.source.Vendor(), Manual: mode.Manual}

	defer func() {
		if err != nil {
			sum.Status = model.RunStatusFailure
			sum.Message = err.Error()
		}
		p.writeLog(ctx, sum, log)
		if !mode.Manual && err != nil {
			log.Error("scheduled fetch failed", zap.Error(err))
			err = nil
		}
	}()

	if credErr := p.source.CheckCredentials(); credErr != nil {
		return sum, credErr
	}

	if mode.Manual {
		if mode.Window == nil {
			return sum, eris.Wrap(model.ErrInvalidWindow, "backfill requires an explicit window")
		}
		if winErr := p.source.ValidateWindow(*mode.Window); winErr != nil {
			return sum, winErr
		}
	}

	raws, fetchErr := p.source.Fetch(ctx, mode.Window)
	if fetchErr != nil {
		return sum, fetchErr
	}
	sum.Fetched = len(raws)
	log.Info("vendor returned leads", zap.Int("count", len(raws)))

	dedup := !mode.Manual || p.source.DedupOnBackfill()
	for _, raw := range raws {
		lead, normErr := raw.Normalize(ctx)
		if errors.Is(normErr, normalize.ErrMissingID) {
			sum.SkippedNoID++
			sum.addError(raw.SenderName() + ": missing ID")
			log.Warn("skipped record without vendor ID", zap.String("sender", raw.SenderName()))
			continue
		}
		if normErr != nil {
			sum.Failed++
			sum.addError(sampleError(raw.SenderName(), normErr))
			log.Error("normalize failed", zap.String("sender", raw.SenderName()), zap.Error(normErr))
			continue
		}

		if dedup {
			exists, dupErr := p.store.LeadExists(ctx, lead.Vendor, lead.VendorUniqueID)
			if dupErr != nil {
				sum.Failed++
				sum.addError(sampleError(lead.ContactName, dupErr))
				log.Error("duplicate check failed", zap.String("vendor_uid", lead.VendorUniqueID), zap.Error(dupErr))
				continue
			}
			if exists {
				sum.Duplicates++
				log.Debug("skipped duplicate", zap.String("vendor_uid", lead.VendorUniqueID))
				continue
			}
		}

		if _, createErr := p.store.CreateLead(ctx, *lead); createErr != nil {
			sum.Failed++
			sum.addError(sampleError(lead.ContactName, createErr))
			log.Error("failed to create lead", zap.String("vendor_uid", lead.VendorUniqueID), zap.Error(createErr))
			continue
		}
		sum.Created++
		log.Info("created lead",
			zap.String("vendor_uid", lead.VendorUniqueID),
			zap.String("contact", lead.ContactName),
		)
	}

	sum.Status = model.RunStatusSuccess
	if mode.Manual && sum.Created == 0 {
		sum.Status = model.RunStatusFailure
	}
	sum.Message = sum.message()

	log.Info("fetch complete",
		zap.Int("fetched", sum.Fetched),
		zap.Int("created", sum.Created),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("skipped_no_id", sum.SkippedNoID),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// writeLog persists the single FetchLog row for this invocation. It runs on
// every exit path, detached from the caller's cancellation so an aborted
// run still leaves its audit record.
func (p *Pipeline) writeLog(ctx context.Context, sum *Summary, log *zap.Logger) {
	fl := model.FetchLog{
		Vendor:       sum.Vendor,
		IsManual:     sum.Manual,
		LeadsFetched: sum.Fetched,
		LeadsCreated: sum.Created,
		Status:       sum.Status,
		Message:      sum.Message,
	}
	if err := p.store.CreateFetchLog(context.WithoutCancel(ctx), fl); err != nil {
		log.Error("failed to write fetch log", zap.Error(err))
	}
}

func sampleError(name string, err error) string {
	msg := err.Error()
	if len(msg) > errTruncateLen {
		msg = msg[:errTruncateLen]
	}
	return name + ": " + msg
}
