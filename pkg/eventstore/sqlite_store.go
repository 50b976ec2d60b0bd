package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clawforge/kernel/pkg/kernelerrors"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable Store backed by a pure-Go SQLite driver. It
// persists the events/runs tables described in §6.1 and runs in WAL mode so
// readers never block a writer.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLiteStore opens (creating if absent) a SQLite database at path and
// applies the event-store schema migration.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite event store: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; avoids SQLITE_BUSY under WAL
	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db, clock: time.Now}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			metadata_json TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			event_id TEXT UNIQUE NOT NULL,
			ts TEXT NOT NULL,
			type TEXT NOT NULL,
			schema_version TEXT NOT NULL,
			actor_json TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			prev_hash TEXT,
			hash TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
		CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`)
	return err
}

func (s *SQLiteStore) CreateRun(runID string, metadata map[string]interface{}) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal run metadata: %w", err)
	}
	_, err = s.db.ExecContext(context.Background(),
		`INSERT INTO runs (run_id, created_at, metadata_json) VALUES (?, ?, ?)`,
		runID, nowISO(s.clock), string(metaJSON))
	if err != nil {
		return fmt.Errorf("create run %q: %w", runID, err)
	}
	return nil
}

// AppendEvent allocates the next seq and inserts the row inside a single
// transaction, so a crash mid-append never leaves a gap or a half-written
// row (§4.3's atomicity contract).
func (s *SQLiteStore) AppendEvent(runID string, draft EventDraft) (*Event, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, kernelerrors.New(kernelerrors.CodeSessionNotFound, fmt.Sprintf("run %q not found", runID))
	}

	var dupCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE event_id = ?`, draft.EventID).Scan(&dupCount); err != nil {
		return nil, err
	}
	if dupCount > 0 {
		return nil, kernelerrors.New(kernelerrors.CodeEventIDConflict, fmt.Sprintf("eventId %q already recorded", draft.EventID))
	}

	prev, err := queryLastEvent(ctx, tx, runID)
	if err != nil {
		return nil, err
	}
	seq := int64(1)
	if prev != nil {
		seq = prev.Seq + 1
	}

	e, err := buildEvent(runID, seq, draft, prev, nowISO(s.clock))
	if err != nil {
		return nil, err
	}

	actorJSON, err := json.Marshal(e.Actor)
	if err != nil {
		return nil, err
	}
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (run_id, seq, event_id, ts, type, schema_version, actor_json, payload_json, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Seq, e.EventID, e.Timestamp, e.Type, e.SchemaVersion, string(actorJSON), string(payloadJSON), e.PrevHash, e.Hash)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return &e, nil
}

func queryLastEvent(ctx context.Context, tx *sql.Tx, runID string) (*Event, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT run_id, seq, event_id, ts, type, schema_version, actor_json, payload_json, prev_hash, hash
		FROM events WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, runID)
	e, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *SQLiteStore) ListEvents(runID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT run_id, seq, event_id, ts, type, schema_version, actor_json, payload_json, prev_hash, hash
		FROM events WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Event
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindByEventID(eventID string) (*Event, error) {
	row := s.db.QueryRowContext(context.Background(), `
		SELECT run_id, seq, event_id, ts, type, schema_version, actor_json, payload_json, prev_hash, hash
		FROM events WHERE event_id = ?`, eventID)
	return scanEventRow(row)
}

func (s *SQLiteStore) FindByType(runID, eventType string) ([]*Event, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT run_id, seq, event_id, ts, type, schema_version, actor_json, payload_json, prev_hash, hash
		FROM events WHERE run_id = ? AND type = ? ORDER BY seq ASC`, runID, eventType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Event
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) VerifyRunChain(runID string) (*ChainVerification, error) {
	events, err := s.ListEvents(runID)
	if err != nil {
		return nil, err
	}
	return verifyChain(events), nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(row rowScanner) (*Event, error) {
	var (
		e                          Event
		actorJSON, payloadJSON     string
		prevHash                   sql.NullString
	)
	if err := row.Scan(&e.RunID, &e.Seq, &e.EventID, &e.Timestamp, &e.Type, &e.SchemaVersion,
		&actorJSON, &payloadJSON, &prevHash, &e.Hash); err != nil {
		return nil, err
	}
	if prevHash.Valid {
		v := prevHash.String
		e.PrevHash = &v
	}
	if err := json.Unmarshal([]byte(actorJSON), &e.Actor); err != nil {
		return nil, fmt.Errorf("unmarshal actor: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &e, nil
}
