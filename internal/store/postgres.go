package store

import (
	"context"
	"encoding/json"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/db"
	"github.com/sells-group/complaint-cli/internal/model"
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS complaints (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	external_id TEXT NOT NULL,
	record      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS workflow_states (
	complaint_id TEXT PRIMARY KEY REFERENCES complaints(id),
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	run          INTEGER NOT NULL,
	state        JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_runs (
	run_id       TEXT PRIMARY KEY,
	complaint_id TEXT NOT NULL REFERENCES complaints(id),
	run          INTEGER NOT NULL,
	status       TEXT NOT NULL,
	state        JSONB NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tickets (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	complaint_id TEXT NOT NULL REFERENCES complaints(id),
	ticket_id    TEXT NOT NULL,
	ticket_key   TEXT NOT NULL,
	link         TEXT NOT NULL,
	status       TEXT NOT NULL,
	token        TEXT NOT NULL,
	run          INTEGER NOT NULL,
	superseded   BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_events (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	complaint_id TEXT NOT NULL,
	run          INTEGER NOT NULL,
	event_type   TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active ON tickets(complaint_id) WHERE NOT superseded;
CREATE INDEX IF NOT EXISTS idx_workflow_states_status ON workflow_states(status);
CREATE INDEX IF NOT EXISTS idx_workflow_states_source ON workflow_states(source);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_complaint ON workflow_runs(complaint_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_complaint ON audit_events(complaint_id, seq);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertComplaint(ctx context.Context, rec *model.ComplaintRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal complaint")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO complaints (id, source, external_id, record, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, string(rec.Source), rec.ExternalID, recJSON, rec.CreatedAt.UTC(),
	)
	if db.IsUniqueViolation(err) {
		return eris.Wrapf(ErrConflict, "postgres: complaint %s", rec.SourceKey())
	}
	return eris.Wrap(err, "postgres: insert complaint")
}

func (s *PostgresStore) GetComplaint(ctx context.Context, id string) (*model.ComplaintRecord, error) {
	rec, err := pgScanJSON[model.ComplaintRecord](s.pool.QueryRow(ctx,
		`SELECT record FROM complaints WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: complaint %s", id)
	}
	return rec, eris.Wrap(err, "postgres: get complaint")
}

func (s *PostgresStore) FindComplaintBySource(ctx context.Context, source model.SourceKind, externalID string) (*model.ComplaintRecord, error) {
	rec, err := pgScanJSON[model.ComplaintRecord](s.pool.QueryRow(ctx,
		`SELECT record FROM complaints WHERE source = $1 AND external_id = $2`, string(source), externalID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return rec, eris.Wrap(err, "postgres: find complaint")
}

func (s *PostgresStore) SaveState(ctx context.Context, st *model.WorkflowState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_states (complaint_id, source, status, run, state, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (complaint_id) DO UPDATE SET
		   status = EXCLUDED.status, run = EXCLUDED.run, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		st.ComplaintID, string(st.Source), string(st.Status), st.Run, stateJSON, st.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save state %s", st.ComplaintID)
}

func (s *PostgresStore) GetState(ctx context.Context, complaintID string) (*model.WorkflowState, error) {
	st, err := pgScanJSON[model.WorkflowState](s.pool.QueryRow(ctx,
		`SELECT state FROM workflow_states WHERE complaint_id = $1`, complaintID))
	if db.IsNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: state %s", complaintID)
	}
	return st, eris.Wrap(err, "postgres: get state")
}

func (s *PostgresStore) ListStates(ctx context.Context, filter StateFilter) ([]model.WorkflowState, error) {
	q, args := stateQuery(filter, postgresPlaceholder)
	return s.queryStates(ctx, q, args...)
}

func (s *PostgresStore) ArchiveRun(ctx context.Context, st *model.WorkflowState) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_runs (run_id, complaint_id, run, status, state) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id) DO NOTHING`,
		st.RunID, st.ComplaintID, st.Run, string(st.Status), stateJSON,
	)
	return eris.Wrapf(err, "postgres: archive run %s", st.RunID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, complaintID string) ([]model.WorkflowState, error) {
	return s.queryStates(ctx,
		`SELECT state FROM workflow_runs WHERE complaint_id = $1 ORDER BY run ASC`, complaintID)
}

func (s *PostgresStore) queryStates(ctx context.Context, q string, args ...any) ([]model.WorkflowState, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query states")
	}
	defer rows.Close()

	var out []model.WorkflowState
	for rows.Next() {
		st, err := pgScanJSON[model.WorkflowState](rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan state")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate states")
}

func (s *PostgresStore) SaveTicket(ctx context.Context, t *model.TicketRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tickets (id, complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New().String(), t.ComplaintID, t.TicketID, t.Key, t.Link, t.Status, t.Token, t.Run, t.Superseded, t.CreatedAt.UTC(),
	)
	if db.IsUniqueViolation(err) {
		return eris.Wrapf(ErrConflict, "postgres: ticket for %s", t.ComplaintID)
	}
	return eris.Wrap(err, "postgres: insert ticket")
}

func (s *PostgresStore) FindActiveTicket(ctx context.Context, complaintID string) (*model.TicketRecord, error) {
	return s.findTicket(ctx,
		`SELECT complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at
		 FROM tickets WHERE complaint_id = $1 AND NOT superseded`,
		complaintID,
	)
}

func (s *PostgresStore) FindTicketByToken(ctx context.Context, token string) (*model.TicketRecord, error) {
	return s.findTicket(ctx,
		`SELECT complaint_id, ticket_id, ticket_key, link, status, token, run, superseded, created_at
		 FROM tickets WHERE token = $1 ORDER BY created_at DESC LIMIT 1`,
		token,
	)
}

func (s *PostgresStore) findTicket(ctx context.Context, q string, arg string) (*model.TicketRecord, error) {
	var t model.TicketRecord
	err := s.pool.QueryRow(ctx, q, arg).
		Scan(&t.ComplaintID, &t.TicketID, &t.Key, &t.Link, &t.Status, &t.Token, &t.Run, &t.Superseded, &t.CreatedAt)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find ticket")
	}
	return &t, nil
}

func (s *PostgresStore) MaxTicketSequence(ctx context.Context, projectKey string) (int, error) {
	prefix := projectKey + "-"
	var seq int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(substr(ticket_key, $1) AS BIGINT)), 0)
		 FROM tickets WHERE ticket_key ~ $2`,
		utf8.RuneCountInString(prefix)+1, "^"+regexp.QuoteMeta(prefix)+"[0-9]+$",
	).Scan(&seq)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: max ticket sequence")
	}
	return int(seq), nil
}

func (s *PostgresStore) SupersedeTickets(ctx context.Context, complaintID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tickets SET superseded = true WHERE complaint_id = $1 AND NOT superseded`, complaintID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: supersede tickets")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, ev *model.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_events (id, complaint_id, run, event_type, stage, status, error_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.ComplaintID, ev.Run, ev.Type, string(ev.Stage), string(ev.Status), ev.ErrorKind, ev.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert event")
}

func (s *PostgresStore) ListEvents(ctx context.Context, complaintID string, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, complaint_id, run, event_type, stage, status, error_kind, created_at
		 FROM audit_events WHERE complaint_id = $1 ORDER BY seq ASC LIMIT $2`,
		complaintID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var out []model.AuditEvent
	for rows.Next() {
		var (
			ev            model.AuditEvent
			stage, status string
		)
		if err := rows.Scan(&ev.ID, &ev.ComplaintID, &ev.Run, &ev.Type, &stage, &status, &ev.ErrorKind, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		ev.Stage = model.Stage(stage)
		ev.Status = model.Status(status)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	counts, err := s.countBy(ctx, `SELECT status, COUNT(*) FROM workflow_states GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Status]int, len(counts))
	for k, v := range counts {
		out[model.Status(k)] = v
	}
	return out, nil
}

func (s *PostgresStore) CountBySource(ctx context.Context) (map[model.SourceKind]int, error) {
	counts, err := s.countBy(ctx, `SELECT source, COUNT(*) FROM workflow_states GROUP BY source`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.SourceKind]int, len(counts))
	for k, v := range counts {
		out[model.SourceKind(k)] = v
	}
	return out, nil
}

func (s *PostgresStore) countBy(ctx context.Context, q string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		out[key] = int(n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate counts")
}

func pgScanJSON[T any](row scannable) (*T, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, eris.Wrap(err, "unmarshal document")
	}
	return &v, nil
}
