package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for
// single-host deployments and tests; Postgres is the default backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lead_sources (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS countries (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS country_states (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	country_id TEXT REFERENCES countries(id)
);

CREATE INDEX IF NOT EXISTS idx_country_states_name ON country_states(name);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	vendor       TEXT NOT NULL,
	vendor_uid   TEXT NOT NULL,
	display_name TEXT NOT NULL,
	contact_name TEXT NOT NULL,
	company_name TEXT,
	email        TEXT,
	phone        TEXT,
	city         TEXT,
	street       TEXT,
	postal_code  TEXT,
	state_id     TEXT REFERENCES country_states(id),
	country_id   TEXT REFERENCES countries(id),
	probability  INTEGER NOT NULL DEFAULT 10,
	query_type   TEXT,
	description  TEXT NOT NULL,
	source_id    TEXT REFERENCES lead_sources(id),
	owner        TEXT,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_vendor_uid ON leads(vendor, vendor_uid);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);

CREATE TABLE IF NOT EXISTS fetch_logs (
	id            TEXT PRIMARY KEY,
	vendor        TEXT NOT NULL,
	is_manual     INTEGER NOT NULL DEFAULT 0,
	leads_fetched INTEGER NOT NULL DEFAULT 0,
	leads_created INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_logs_vendor ON fetch_logs(vendor, created_at DESC);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	phone      TEXT,
	owner      TEXT,
	created_at DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (string, error) {
	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (
			id, vendor, vendor_uid, display_name, contact_name,
			company_name, email, phone, city, street, postal_code,
			state_id, country_id, probability, query_type, description,
			source_id, owner, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(lead.Vendor), lead.VendorUniqueID, lead.DisplayName, lead.ContactName,
		lead.CompanyName, lead.Email, lead.Phone, lead.City, lead.Street, lead.PostalCode,
		lead.StateID, lead.CountryID, lead.Probability, lead.QueryType, lead.Description,
		nullIfEmpty(lead.SourceID), lead.Owner, createdAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert lead %s", lead.VendorUniqueID)
	}
	return id, nil
}

func (s *SQLiteStore) LeadExists(ctx context.Context, vendor model.Vendor, vendorUID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE vendor = ? AND vendor_uid = ?)`,
		string(vendor), vendorUID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: lead exists %s", vendorUID)
	}
	return exists, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	sqlStr := `SELECT id, vendor, vendor_uid, display_name, contact_name,
		company_name, email, phone, city, street, postal_code,
		state_id, country_id, probability, query_type, description,
		source_id, owner, created_at
	FROM leads`
	var args []any
	if filter.Vendor != "" {
		sqlStr += " WHERE vendor = ?"
		args = append(args, string(filter.Vendor))
	}
	sqlStr += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		sqlStr += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var sourceID *string
		if err := rows.Scan(
			&l.ID, &l.Vendor, &l.VendorUniqueID, &l.DisplayName, &l.ContactName,
			&l.CompanyName, &l.Email, &l.Phone, &l.City, &l.Street, &l.PostalCode,
			&l.StateID, &l.CountryID, &l.Probability, &l.QueryType, &l.Description,
			&sourceID, &l.Owner, &l.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if sourceID != nil {
			l.SourceID = *sourceID
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads")
}

func (s *SQLiteStore) GetOrCreateSource(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO lead_sources (id, name) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name
		 RETURNING id`,
		uuid.New().String(), name,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert source %s", name)
	}
	return id, nil
}

func (s *SQLiteStore) FindStateByName(ctx context.Context, name string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM country_states WHERE name = ? LIMIT 1`, name, "state")
}

func (s *SQLiteStore) FindCountryByCode(ctx context.Context, code string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM countries WHERE code = ? LIMIT 1`, code, "country")
}

func (s *SQLiteStore) FindCountryByName(ctx context.Context, name string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM countries WHERE name = ? LIMIT 1`, name, "country")
}

func (s *SQLiteStore) findRef(ctx context.Context, sqlStr, key, kind string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, sqlStr, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: find %s %q", kind, key)
	}
	return id, nil
}

func (s *SQLiteStore) CreateFetchLog(ctx context.Context, log model.FetchLog) error {
	id := log.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_logs (id, vendor, is_manual, leads_fetched, leads_created, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(log.Vendor), log.IsManual, log.LeadsFetched, log.LeadsCreated,
		string(log.Status), log.Message, createdAt,
	)
	return eris.Wrapf(err, "sqlite: insert fetch log for %s", log.Vendor)
}

func (s *SQLiteStore) ListFetchLogs(ctx context.Context, filter LogFilter) ([]model.FetchLog, error) {
	sqlStr := `SELECT id, vendor, is_manual, leads_fetched, leads_created, status, message, created_at
	FROM fetch_logs`
	var args []any
	if filter.Vendor != "" {
		sqlStr += " WHERE vendor = ?"
		args = append(args, string(filter.Vendor))
	}
	sqlStr += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fetch logs")
	}
	defer rows.Close()

	var logs []model.FetchLog
	for rows.Next() {
		var l model.FetchLog
		if err := rows.Scan(
			&l.ID, &l.Vendor, &l.IsManual, &l.LeadsFetched, &l.LeadsCreated,
			&l.Status, &l.Message, &l.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list fetch logs")
}

func (s *SQLiteStore) CreateContact(ctx context.Context, contact model.Contact, principal string) (string, error) {
	ApplyContactDefaults(&contact, principal)

	id := contact.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := contact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, name, email, phone, owner, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, contact.Name, contact.Email, contact.Phone, contact.Owner, createdAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert contact %s", contact.Name)
	}
	return id, nil
}

// SeedReference inserts reference rows used by lookups. Intended for
// initial provisioning and tests; ignores rows that already exist.
func (s *SQLiteStore) SeedReference(ctx context.Context, countries map[string]string, states []string) error {
	for code, name := range countries {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO countries (id, name, code) VALUES (?, ?, ?) ON CONFLICT(code) DO NOTHING`,
			uuid.New().String(), name, code,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed country %s", code)
		}
	}
	for _, name := range states {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO country_states (id, name) VALUES (?, ?)`,
			uuid.New().String(), name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed state %s", name)
		}
	}
	return nil
}
