package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsync/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_CreateLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(
			pgxmock.AnyArg(), "indiamart", "2012487827", "Ravi Kumar - Need pumps", "Ravi Kumar",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 75, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateLead(context.Background(), model.Lead{
		Vendor:         model.VendorIndiaMART,
		VendorUniqueID: "2012487827",
		DisplayName:    "Ravi Kumar - Need pumps",
		ContactName:    "Ravi Kumar",
		Probability:    75,
		Description:    "IndiaMART Lead",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateLead_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(assert.AnError)

	_, err := s.CreateLead(context.Background(), model.Lead{VendorUniqueID: "42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert lead 42")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LeadExists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tradeindia", "99001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.LeadExists(context.Background(), model.VendorTradeIndia, "99001")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LeadExists_No(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("indiamart", "42").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := s.LeadExists(context.Background(), model.VendorIndiaMART, "42")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateSource(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO lead_sources .* ON CONFLICT \(name\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "IndiaMART").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("source-1"))

	id, err := s.GetOrCreateSource(context.Background(), "IndiaMART")
	require.NoError(t, err)
	assert.Equal(t, "source-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindStateByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM country_states`).
		WithArgs("Atlantis").
		WillReturnError(pgx.ErrNoRows)

	id, err := s.FindStateByName(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCountryByCode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM countries WHERE code`).
		WithArgs("IN").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("country-in"))

	id, err := s.FindCountryByCode(context.Background(), "IN")
	require.NoError(t, err)
	assert.Equal(t, "country-in", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateFetchLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO fetch_logs`).
		WithArgs(pgxmock.AnyArg(), "indiamart", false, 12, 9, "success", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateFetchLog(context.Background(), model.FetchLog{
		Vendor:       model.VendorIndiaMART,
		LeadsFetched: 12,
		LeadsCreated: 9,
		Status:       model.RunStatusSuccess,
		Message:      "Created 9 new leads (API returned 12, 3 duplicates, 0 without ID)",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListFetchLogs_VendorFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, vendor, is_manual, leads_fetched, leads_created, status, message, created_at\s+FROM fetch_logs WHERE vendor = \$1`).
		WithArgs("tradeindia", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vendor", "is_manual", "leads_fetched", "leads_created", "status", "message", "created_at",
		}).AddRow("log-1", "tradeindia", true, 4, 4, "success", "ok", now))

	logs, err := s.ListFetchLogs(context.Background(), LogFilter{Vendor: model.VendorTradeIndia, Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.VendorTradeIndia, logs[0].Vendor)
	assert.True(t, logs[0].IsManual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM leads ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "vendor", "vendor_uid", "display_name", "contact_name",
			"company_name", "email", "phone", "city", "street", "postal_code",
			"state_id", "country_id", "probability", "query_type", "description",
			"source_id", "owner", "created_at",
		}))

	leads, err := s.ListLeads(context.Background(), LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateContact(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO contacts`).
		WithArgs(pgxmock.AnyArg(), "Meena", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.CreateContact(context.Background(), model.Contact{Name: "Meena"}, "ops-user")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS lead_sources`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
