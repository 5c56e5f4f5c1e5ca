package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store persists raw leads before any valuation work happens.
type Store interface {
	Insert(ctx context.Context, form Form) (string, error)
	Recent(ctx context.Context, limit int) ([]Lead, error)
}

type Lead struct {
	ID        string    `json:"id"`
	Form      Form      `json:"form"`
	CreatedAt time.Time `json:"created_at"`
}

type leadRow struct {
	ID        string `db:"id"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// createdAtLayout is fixed width so created_at sorts correctly as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const leadsSchema = `
CREATE TABLE IF NOT EXISTS property_leads (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLStore writes leads to the property_leads table. It works against SQLite
// (modernc driver) for local runs and Postgres (lib/pq) in production.
type SQLStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

// OpenSQLStore opens driver ("sqlite" or "postgres") at dsn and ensures the
// schema exists.
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "", "sqlite":
		db, err = sqlx.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	case "postgres":
		db, err = sqlx.Connect("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if _, err := db.Exec(leadsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, clock: time.Now}, nil
}

// sqliteDSN appends the WAL and busy-timeout pragmas, keeping any query the
// caller already set.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Insert(ctx context.Context, form Form) (string, error) {
	payload, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("encode lead: %w", err)
	}
	id := uuid.NewString()
	query := s.db.Rebind(`INSERT INTO property_leads (id, name, email, phone, address, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		id,
		form.String("name"),
		form.String("email"),
		form.String("phone"),
		form.Address(),
		string(payload),
		s.clock().UTC().Format(createdAtLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

// Recent returns up to limit leads, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 1
	}
	var rows []leadRow
	query := s.db.Rebind(`SELECT id, payload, created_at FROM property_leads ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select leads: %w", err)
	}
	out := make([]Lead, 0, len(rows))
	for _, r := range rows {
		lead := Lead{ID: r.ID, Form: Form{}}
		if err := json.Unmarshal([]byte(r.Payload), &lead.Form); err != nil {
			return nil, fmt.Errorf("decode lead %s: %w", r.ID, err)
		}
		if t, err := time.Parse(createdAtLayout, strings.TrimSpace(r.CreatedAt)); err == nil {
			lead.CreatedAt = t
		}
		out = append(out, lead)
	}
	return out, nil
}
