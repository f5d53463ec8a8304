package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/complaint-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS complaints (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	external_id TEXT NOT NULL,
	record      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS workflow_states (
	complaint_id TEXT PRIMARY KEY REFERENCES complaints(id),
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	run          INTEGER NOT NULL,
	state        TEXT NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_runs (
	run_id       TEXT PRIMARY KEY,
	complaint_id TEXT NOT NULL REFERENCES complaints(id),
	run          INTEGER NOT NULL,
	status       TEXT NOT NULL,
	state        TEXT NOT NULL,
	archived_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id           TEXT PRIMARY KEY,
	complaint_id TEXT NOT NULL REFERENCES complaints(id),
	ticket_id    TEXT NOT NULL,
	ticket_key   TEXT NOT NULL,
	link         TEXT NOT NULL,
	status       TEXT NOT NULL,
	token        TEXT NOT NULL,
	run          INTEGER NOT NULL,
	superseded   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	complaint_id TEXT NOT NULL,
	run          INTEGER NOT NULL,
	event_type   TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active ON tickets(complaint_id) WHERE superseded = 0;
CREATE INDEX IF NOT EXISTS idx_workflow_states_status ON workflow_states(status);
CREATE INDEX IF NOT EXISTS idx_workflow_states_source ON workflow_states(source);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_complaint ON workflow_runs(complaint_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_complaint ON audit_events(complaint_id);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) InsertComplaint(ctx context.Context, rec *model.ComplaintRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal complaint")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO complaints (id, source, external_id, record, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Source), rec.ExternalID, string(recJSON), rec.CreatedAt.UTC(),
	)
	if isSQLiteConstraint(err) {
		return eris.Wrapf(ErrConflict, "sqlite: complaint %s", rec.SourceKey())
	}
	return eris.Wrap(err, "sqlite: insert complaint")
}

func (s *SQLiteStore) GetComplaint(ctx context.Context, id string) (*model.ComplaintRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM complaints WHERE id = ?`, id)
	rec, err := scanJSON[model.ComplaintRecord](row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: complaint %s", id)
	}
	return rec, eris.Wrap(err, "sqlite: get complaint")
}

func (s *SQLiteStore) FindComplaintBySource(ctx context.Context, source model.SourceKind, externalID string) (*model.ComplaintRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM complaints WHERE source = ? AND external_id = ?`,
		string(source), externalID,
	)
	rec, err := scanJSON[model.ComplaintRecord](row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, eris.Wrap(err, "sqlite: find complaint")
}

func (s *SQLiteStore) SaveState(ctx context.Context, st *model.WorkflowState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_states (complaint_id, source, status, run, state, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (complaint_id) DO UPDATE SET
		   status = excluded.status, run = excluded.run, state = excluded.state, updated_at = excluded.updated_at`,
		st.ComplaintID, string(st.Source), string(st.Status), st.Run, string(stateJSON), st.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save state %s", st.ComplaintID)
}

func (s *SQLiteStore) GetState(ctx context.Context, complaintID string) (*model.WorkflowState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT state FROM workflow_states WHERE complaint_id = ?`, complaintID)
	st, err := scanJSON[model.WorkflowState](row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: state %s", complaintID)
	}
	return st, eris.Wrap(err, "sqlite: get state")
}

func (s *SQLiteStore) ListStates(ctx context.Context, filter StateFilter) ([]model.WorkflowState, error) {
	q, args := stateQuery(filter, sqlitePlaceholder)
	return s.queryStates(ctx, q, args...)
}

func (s *SQLiteStore) ArchiveRun(ctx context.Context, st *model.WorkflowState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_runs (run_id, complaint_id, run, status, state, archived_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		st.RunID, st.ComplaintID, st.Run, string(st.Status), string(stateJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: archive run %s", st.RunID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, complaintID string) ([]model.WorkflowState, error) {
	return s.queryStates(ctx,
		`SELECT state FROM workflow_runs WHERE complaint_id = ? ORDER BY run ASC`, complaintID)
}

func (s *SQLiteStore) queryStates(ctx context.Context, q string, args ...any) ([]model.WorkflowState, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query states")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.WorkflowState
	for rows.Next() {
		st, err := scanJSON[model.WorkflowState](rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate states")
}

func (s *SQLiteStore) SaveTicket(ctx context.Context, t *model.TicketRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), t.ComplaintID, t.TicketID, t.Key, t.Link, t.Status, t.Token, t.Run,
		boolToInt(t.Superseded), t.CreatedAt.UTC(),
	)
	if isSQLiteConstraint(err) {
		return eris.Wrapf(ErrConflict, "sqlite: ticket for %s", t.ComplaintID)
	}
	return eris.Wrap(err, "sqlite: insert ticket")
}

func (s *SQLiteStore) FindActiveTicket(ctx context.Context, complaintID string) (*model.TicketRecord, error) {
	return s.findTicket(ctx,
		`SELECT complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at
		 FROM tickets WHERE complaint_id = ? AND superseded = 0`,
		complaintID,
	)
}

func (s *SQLiteStore) FindTicketByToken(ctx context.Context, token string) (*model.TicketRecord, error) {
	return s.findTicket(ctx,
		`SELECT complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at
		 FROM tickets WHERE token = ? ORDER BY created_at DESC LIMIT 1`,
		token,
	)
}

func (s *SQLiteStore) findTicket(ctx context.Context, q string, arg string) (*model.TicketRecord, error) {
	var (
		t          model.TicketRecord
		superseded int
	)
	err := s.db.QueryRowContext(ctx, q, arg).
		Scan(&t.ComplaintID, &t.TicketID, &t.Key, &t.Link, &t.Status, &t.Token, &t.Run, &superseded, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find ticket")
	}
	t.Superseded = superseded != 0
	return &t, nil
}

func (s *SQLiteStore) MaxTicketSequence(ctx context.Context, projectKey string) (int, error) {
	prefix := projectKey + "-"
	n := utf8.RuneCountInString(prefix)
	var seq int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(ticket_key, ?) AS INTEGER)), 0)
		 FROM tickets WHERE substr(ticket_key, 1, ?) = ?`,
		n+1, n, prefix,
	).Scan(&seq)
	return seq, eris.Wrap(err, "sqlite: max ticket sequence")
}

func (s *SQLiteStore) SupersedeTickets(ctx context.Context, complaintID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET superseded = 1 WHERE complaint_id = ? AND superseded = 0`, complaintID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: supersede tickets")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *model.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, complaint_id, run, event_type, stage, status, error_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ComplaintID, ev.Run, ev.Type, string(ev.Stage), string(ev.Status), ev.ErrorKind, ev.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert event")
}

func (s *SQLiteStore) ListEvents(ctx context.Context, complaintID string, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, complaint_id, run, event_type, stage, status, error_kind, created_at
		 FROM audit_events WHERE complaint_id = ? ORDER BY seq ASC LIMIT ?`,
		complaintID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AuditEvent
	for rows.Next() {
		var (
			ev            model.AuditEvent
			stage, status string
		)
		if err := rows.Scan(&ev.ID, &ev.ComplaintID, &ev.Run, &ev.Type, &stage, &status, &ev.ErrorKind, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		ev.Stage = model.Stage(stage)
		ev.Status = model.Status(status)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate events")
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	counts, err := s.countBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[model.Status]int, len(counts))
	for k, v := range counts {
		out[model.Status(k)] = v
	}
	return out, nil
}

func (s *SQLiteStore) CountBySource(ctx context.Context) (map[model.SourceKind]int, error) {
	counts, err := s.countBy(ctx, "source")
	if err != nil {
		return nil, err
	}
	out := make(map[model.SourceKind]int, len(counts))
	for k, v := range counts {
		out[model.SourceKind(k)] = v
	}
	return out, nil
}

// countBy groups workflow states by a fixed column name.
func (s *SQLiteStore) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM workflow_states GROUP BY `+column)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: count by %s", column)
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		out[key] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate counts")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJSON[T any](row scannable) (*T, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, eris.Wrap(err, "unmarshal document")
	}
	return &v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
