package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsync/internal/model"
	"github.com/sells-group/leadsync/internal/normalize"
	"github.com/sells-group/leadsync/internal/store"
)

// fakeStore is an in-memory store.Store for pipeline tests.
type fakeStore struct {
	mu    sync.Mutex
	leads []model.Lead
	logs  []model.FetchLog

	createLeadErr error
	existsErr     error
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (s *fakeStore) CreateLead(_ context.Context, lead model.Lead) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createLeadErr != nil {
		return "", s.createLeadErr
	}
	lead.ID = "lead-" + lead.VendorUniqueID
	s.leads = append(s.leads, lead)
	return lead.ID, nil
}

func (s *fakeStore) LeadExists(_ context.Context, vendor model.Vendor, vendorUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, l := range s.leads {
		if l.Vendor == vendor && l.VendorUniqueID == vendorUID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListLeads(_ context.Context, _ store.LeadFilter) ([]model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Lead(nil), s.leads...), nil
}

func (s *fakeStore) GetOrCreateSource(_ context.Context, name string) (string, error) {
	return "source-" + name, nil
}

func (s *fakeStore) FindStateByName(context.Context, string) (string, error)   { return "", nil }
func (s *fakeStore) FindCountryByCode(context.Context, string) (string, error) { return "", nil }
func (s *fakeStore) FindCountryByName(context.Context, string) (string, error) { return "", nil }

func (s *fakeStore) CreateFetchLog(_ context.Context, log model.FetchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = "log"
	log.CreatedAt = time.Now()
	s.logs = append(s.logs, log)
	return nil
}

func (s *fakeStore) ListFetchLogs(_ context.Context, _ store.LogFilter) ([]model.FetchLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FetchLog(nil), s.logs...), nil
}

func (s *fakeStore) CreateContact(_ context.Context, c model.Contact, principal string) (string, error) {
	return "contact", nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

// fakeRaw normalizes to a fixed lead, or fails.
type fakeRaw struct {
	lead model.Lead
	err  error
}

func (r fakeRaw) SenderName() string {
	if r.lead.ContactName == "" {
		return "Unknown"
	}
	return r.lead.ContactName
}

func (r fakeRaw) Normalize(context.Context) (*model.Lead, error) {
	if r.err != nil {
		return nil, r.err
	}
	lead := r.lead
	return &lead, nil
}

// fakeSource serves canned raw leads.
type fakeSource struct {
	vendor        model.Vendor
	raws          []RawLead
	credErr       error
	fetchErr      error
	windowErr     error
	dedupBackfill bool
}

func (s *fakeSource) Vendor() model.Vendor                   { return s.vendor }
func (s *fakeSource) CheckCredentials() error                { return s.credErr }
func (s *fakeSource) ValidateWindow(model.Window) error      { return s.windowErr }
func (s *fakeSource) DedupOnBackfill() bool                  { return s.dedupBackfill }
func (s *fakeSource) Fetch(context.Context, *model.Window) ([]RawLead, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.raws, nil
}

func rawLead(vendor model.Vendor, uid, name string) fakeRaw {
	return fakeRaw{lead: model.Lead{
		Vendor:         vendor,
		VendorUniqueID: uid,
		ContactName:    name,
		DisplayName:    name + " - Inquiry",
	}}
}

func testWindow() model.Window {
	return model.Window{
		Start: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
}

func TestRun_ScheduledCreatesLeads(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor: model.VendorIndiaMART,
		raws: []RawLead{
			rawLead(model.VendorIndiaMART, "1", "Ravi"),
			rawLead(model.VendorIndiaMART, "2", "Asha"),
			rawLead(model.VendorIndiaMART, "3", "Meena"),
		},
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 3, sum.Created)
	assert.Equal(t, 0, sum.Duplicates)
	assert.Equal(t, model.RunStatusSuccess, sum.Status)
	assert.Len(t, st.leads, 3)

	require.Len(t, st.logs, 1)
	log := st.logs[0]
	assert.Equal(t, model.VendorIndiaMART, log.Vendor)
	assert.False(t, log.IsManual)
	assert.Equal(t, 3, log.LeadsFetched)
	assert.Equal(t, 3, log.LeadsCreated)
	assert.Equal(t, "Created 3 new leads (API returned 3, 0 duplicates, 0 without ID)", log.Message)
}

func TestRun_ScheduledIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor: model.VendorIndiaMART,
		raws: []RawLead{
			rawLead(model.VendorIndiaMART, "1", "Ravi"),
			rawLead(model.VendorIndiaMART, "2", "Asha"),
			rawLead(model.VendorIndiaMART, "3", "Meena"),
		},
	}
	p := New(src, st)

	first, err := p.Run(context.Background(), Scheduled())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := p.Run(context.Background(), Scheduled())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Duplicates)
	assert.Equal(t, model.RunStatusSuccess, second.Status)
	assert.Len(t, st.leads, 3)
}

func TestRun_SkipsRecordsWithoutID(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor: model.VendorIndiaMART,
		raws: []RawLead{
			rawLead(model.VendorIndiaMART, "1", "Ravi"),
			fakeRaw{lead: model.Lead{ContactName: "NoID"}, err: normalize.ErrMissingID},
		},
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, sum.SkippedNoID)
	assert.Equal(t, model.RunStatusSuccess, sum.Status)
	assert.Len(t, st.leads, 1)
}

func TestRun_PerRecordFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor: model.VendorTradeIndia,
		raws: []RawLead{
			fakeRaw{lead: model.Lead{ContactName: "Broken"}, err: eris.New("resolve state: connection refused")},
			rawLead(model.VendorTradeIndia, "2", "Meena"),
		},
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, model.RunStatusSuccess, sum.Status)
}

func TestRun_ScheduledSwallowsFetchError(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor:   model.VendorIndiaMART,
		fetchErr: eris.New("api: 502"),
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())

	// Scheduled runs never propagate vendor failures; the log row carries
	// the outcome instead.
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailure, sum.Status)
	assert.Contains(t, sum.Message, "api: 502")

	require.Len(t, st.logs, 1)
	assert.Equal(t, model.RunStatusFailure, st.logs[0].Status)
	assert.Equal(t, 0, st.logs[0].LeadsFetched)
}

func TestRun_ManualSurfacesFetchError(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor:   model.VendorIndiaMART,
		fetchErr: eris.New("api: timeout"),
	}

	_, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
	require.Error(t, err)

	// The log row is written even though the run aborted.
	require.Len(t, st.logs, 1)
	assert.True(t, st.logs[0].IsManual)
	assert.Equal(t, model.RunStatusFailure, st.logs[0].Status)
}

func TestRun_CredentialsMissing(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor:  model.VendorTradeIndia,
		credErr: eris.Wrap(ErrCredentialsMissing, "TradeIndia userid, profile_id, and key must all be set"),
	}

	_, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCredentialsMissing))
	require.Len(t, st.logs, 1)
}

func TestRun_BackfillRequiresWindow(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{vendor: model.VendorIndiaMART}

	_, err := New(src, st).Run(context.Background(), Mode{Manual: true})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidWindow))
}

func TestRun_BackfillInvalidWindow(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor:    model.VendorIndiaMART,
		windowErr: eris.Wrap(model.ErrInvalidWindow, "range cannot exceed 7 days"),
	}

	_, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidWindow))
	require.Len(t, st.logs, 1)
	assert.Equal(t, model.RunStatusFailure, st.logs[0].Status)
}

func TestRun_BackfillDedupPolicy(t *testing.T) {
	t.Parallel()

	seed := func(st *fakeStore, vendor model.Vendor) {
		st.leads = append(st.leads, model.Lead{Vendor: vendor, VendorUniqueID: "1"})
	}

	t.Run("indiamart skips existing", func(t *testing.T) {
		t.Parallel()
		st := newFakeStore()
		seed(st, model.VendorIndiaMART)
		src := &fakeSource{
			vendor:        model.VendorIndiaMART,
			dedupBackfill: true,
			raws: []RawLead{
				rawLead(model.VendorIndiaMART, "1", "Ravi"),
				rawLead(model.VendorIndiaMART, "2", "Asha"),
			},
		}

		sum, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Created)
		assert.Equal(t, 1, sum.Duplicates)
		assert.Len(t, st.leads, 2)
	})

	t.Run("tradeindia re-inserts existing", func(t *testing.T) {
		t.Parallel()
		st := newFakeStore()
		seed(st, model.VendorTradeIndia)
		src := &fakeSource{
			vendor:        model.VendorTradeIndia,
			dedupBackfill: false,
			raws: []RawLead{
				rawLead(model.VendorTradeIndia, "1", "Meena"),
				rawLead(model.VendorTradeIndia, "2", "Arjun"),
			},
		}

		sum, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
		require.NoError(t, err)
		assert.Equal(t, 2, sum.Created)
		assert.Equal(t, 0, sum.Duplicates)
		assert.Len(t, st.leads, 3)
	})
}

func TestRun_ManualZeroCreatedIsFailure(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.leads = append(st.leads, model.Lead{Vendor: model.VendorIndiaMART, VendorUniqueID: "1"})
	src := &fakeSource{
		vendor:        model.VendorIndiaMART,
		dedupBackfill: true,
		raws:          []RawLead{rawLead(model.VendorIndiaMART, "1", "Ravi")},
	}

	sum, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailure, sum.Status)
	assert.Contains(t, sum.Message, "API returned 1 leads")
	assert.Contains(t, sum.Message, "Created: 0")
	assert.Contains(t, sum.Message, "Skipped (duplicate): 1")
}

func TestRun_ManualMessageSamplesErrors(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	raws := make([]RawLead, 0, 8)
	for i := 0; i < 7; i++ {
		raws = append(raws, fakeRaw{
			lead: model.Lead{ContactName: "Sender"},
			err:  eris.New(strings.Repeat("x", 80)),
		})
	}
	raws = append(raws, rawLead(model.VendorIndiaMART, "ok", "Ravi"))
	src := &fakeSource{vendor: model.VendorIndiaMART, raws: raws, dedupBackfill: true}

	sum, err := New(src, st).Run(context.Background(), Backfill(testWindow()))
	require.NoError(t, err)

	assert.Equal(t, 7, sum.Failed)
	assert.Equal(t, 1, sum.Created)

	// At most five samples, each truncated to 50 characters.
	lines := strings.Split(sum.Message, "\n")
	var samples []string
	for _, l := range lines {
		if strings.HasPrefix(l, "Sender: ") {
			samples = append(samples, l)
		}
	}
	require.Len(t, samples, maxSampleErrors)
	for _, s := range samples {
		assert.Equal(t, "Sender: "+strings.Repeat("x", errTruncateLen), s)
	}
}

func TestRun_DuplicateCheckFailureCountsAsFailed(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.existsErr = eris.New("connection reset")
	src := &fakeSource{
		vendor: model.VendorIndiaMART,
		raws:   []RawLead{rawLead(model.VendorIndiaMART, "1", "Ravi")},
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, sum.Created)
	assert.Empty(t, st.leads)
}

func TestRun_CreateLeadFailureCountsAsFailed(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.createLeadErr = eris.New("constraint violation")
	src := &fakeSource{
		vendor: model.VendorTradeIndia,
		raws:   []RawLead{rawLead(model.VendorTradeIndia, "1", "Meena")},
	}

	sum, err := New(src, st).Run(context.Background(), Scheduled())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, model.RunStatusSuccess, sum.Status)
}

func TestRun_LogWrittenOnCancelledContext(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	src := &fakeSource{
		vendor:   model.VendorIndiaMART,
		fetchErr: context.Canceled,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, st).Run(ctx, Backfill(testWindow()))
	require.Error(t, err)
	require.Len(t, st.logs, 1)
}
