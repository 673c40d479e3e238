package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync/internal/db"
	"github.com/sells-group/leadsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot path of the ingestion loop.
var preparedStatements = map[string]string{
	"lead_exists":      `SELECT EXISTS (SELECT 1 FROM leads WHERE vendor = $1 AND vendor_uid = $2)`,
	"insert_lead":      insertLeadSQL,
	"upsert_source":    upsertSourceSQL,
	"find_state":       `SELECT id FROM country_states WHERE name = $1 LIMIT 1`,
	"find_country_iso": `SELECT id FROM countries WHERE code = $1 LIMIT 1`,
	"insert_fetch_log": insertFetchLogSQL,
}

const insertLeadSQL = `INSERT INTO leads (
	id, vendor, vendor_uid, display_name, contact_name,
	company_name, email, phone, city, street, postal_code,
	state_id, country_id, probability, query_type, description,
	source_id, owner, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// upsertSourceSQL is a single-statement atomic get-or-create: the no-op
// update makes RETURNING yield the existing row's id on conflict.
const upsertSourceSQL = `INSERT INTO lead_sources (id, name)
	VALUES ($1, $2)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id`

const insertFetchLogSQL = `INSERT INTO fetch_logs (
	id, vendor, is_manual, leads_fetched, leads_created, status, message, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lead_sources (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Indexed, deliberately not unique: the TradeIndia backfill path
-- re-inserts records in range unconditionally.
CREATE INDEX IF NOT EXISTS idx_leads_vendor_uid ON leads(vendor, vendor_uid);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);

CREATE TABLE IF NOT EXISTS fetch_logs (
	id            TEXT PRIMARY KEY,
	vendor        TEXT NOT NULL,
	is_manual     BOOLEAN NOT NULL DEFAULT false,
	leads_fetched INTEGER NOT NULL DEFAULT 0,
	leads_created INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_fetch_logs_vendor ON fetch_logs(vendor, created_at DESC);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	phone      TEXT,
	owner      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (string, error) {
	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertLeadSQL,
		id, string(lead.Vendor), lead.VendorUniqueID, lead.DisplayName, lead.ContactName,
		lead.CompanyName, lead.Email, lead.Phone, lead.City, lead.Street, lead.PostalCode,
		lead.StateID, lead.CountryID, lead.Probability, lead.QueryType, lead.Description,
		nullIfEmpty(lead.SourceID), lead.Owner, createdAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert lead %s", lead.VendorUniqueID)
	}
	return id, nil
}

func (s *PostgresStore) LeadExists(ctx context.Context, vendor model.Vendor, vendorUID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE vendor = $1 AND vendor_uid = $2)`,
		string(vendor), vendorUID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: lead exists %s", vendorUID)
	}
	return exists, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	sql := `SELECT id, vendor, vendor_uid, display_name, contact_name,
		company_name, email, phone, city, street, postal_code,
		state_id, country_id, probability, query_type, description,
		source_id, owner, created_at
	FROM leads`
	var args []any
	if filter.Vendor != "" {
		args = append(args, string(filter.Vendor))
		sql += fmt.Sprintf(" WHERE vendor = $%d", len(args))
	}
	sql += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
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
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if sourceID != nil {
			l.SourceID = *sourceID
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads")
}

func (s *PostgresStore) GetOrCreateSource(ctx context.Context, name string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, upsertSourceSQL, uuid.New().String(), name).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert source %s", name)
	}
	return id, nil
}

func (s *PostgresStore) FindStateByName(ctx context.Context, name string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM country_states WHERE name = $1 LIMIT 1`, name, "state")
}

func (s *PostgresStore) FindCountryByCode(ctx context.Context, code string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM countries WHERE code = $1 LIMIT 1`, code, "country")
}

func (s *PostgresStore) FindCountryByName(ctx context.Context, name string) (string, error) {
	return s.findRef(ctx, `SELECT id FROM countries WHERE name = $1 LIMIT 1`, name, "country")
}

func (s *PostgresStore) findRef(ctx context.Context, sql, key, kind string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, sql, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: find %s %q", kind, key)
	}
	return id, nil
}

func (s *PostgresStore) CreateFetchLog(ctx context.Context, log model.FetchLog) error {
	id := log.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertFetchLogSQL,
		id, string(log.Vendor), log.IsManual, log.LeadsFetched, log.LeadsCreated,
		string(log.Status), log.Message, createdAt,
	)
	return eris.Wrapf(err, "postgres: insert fetch log for %s", log.Vendor)
}

func (s *PostgresStore) ListFetchLogs(ctx context.Context, filter LogFilter) ([]model.FetchLog, error) {
	sql := `SELECT id, vendor, is_manual, leads_fetched, leads_created, status, message, created_at
	FROM fetch_logs`
	var args []any
	if filter.Vendor != "" {
		args = append(args, string(filter.Vendor))
		sql += fmt.Sprintf(" WHERE vendor = $%d", len(args))
	}
	sql += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fetch logs")
	}
	defer rows.Close()

	var logs []model.FetchLog
	for rows.Next() {
		var l model.FetchLog
		if err := rows.Scan(
			&l.ID, &l.Vendor, &l.IsManual, &l.LeadsFetched, &l.LeadsCreated,
			&l.Status, &l.Message, &l.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fetch log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list fetch logs")
}

func (s *PostgresStore) CreateContact(ctx context.Context, contact model.Contact, principal string) (string, error) {
	ApplyContactDefaults(&contact, principal)

	id := contact.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := contact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contacts (id, name, email, phone, owner, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, contact.Name, contact.Email, contact.Phone, contact.Owner, createdAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert contact %s", contact.Name)
	}
	return id, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
