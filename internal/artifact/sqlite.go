package artifact

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteStore keeps every artifact version as its own row.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the artifacts table in db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			key TEXT NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			data TEXT,
			flow_run_id TEXT,
			flow_run_name TEXT,
			created_at TEXT NOT NULL
		);`,
	); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS artifacts_key ON artifacts (key, seq);`)
	return err
}

// Create inserts a new version. Existing rows are never updated.
func (s *SQLiteStore) Create(ctx context.Context, a Artifact) (Artifact, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, key, type, description, data, flow_run_id, flow_run_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Key,
		a.Type,
		a.Description,
		a.Data,
		a.FlowRunID,
		a.FlowRunName,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Artifact{}, err
	}
	return a, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, key string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, type, description, data, flow_run_id, flow_run_name, created_at
		FROM artifacts
		WHERE key = ?
		ORDER BY seq DESC
		LIMIT 1`,
		key,
	)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	return a, err
}

// Versions returns every version of key, newest first.
func (s *SQLiteStore) Versions(ctx context.Context, key string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, type, description, data, flow_run_id, flow_run_name, created_at
		FROM artifacts
		WHERE key = ?
		ORDER BY seq DESC`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (Artifact, error) {
	var (
		a                      Artifact
		desc, data, runID, run sql.NullString
		created                string
	)
	if err := sc.Scan(&a.ID, &a.Key, &a.Type, &desc, &data, &runID, &run, &created); err != nil {
		return Artifact{}, err
	}
	a.Description = desc.String
	a.Data = data.String
	a.FlowRunID = runID.String
	a.FlowRunName = run.String
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}
