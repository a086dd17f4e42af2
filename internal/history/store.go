package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	target TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is a persisted record of one analyzer process
type Run struct {
	ID           string
	Kind         domain.ProcessKind
	Target       string
	Status       domain.ProcessStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
}

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record
func (s *Store) SaveRun(run *Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, target, status, started_at, finished_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Kind),
		run.Target,
		string(run.Status),
		run.StartedAt,
		run.FinishedAt,
		run.ErrorMessage,
	)
	return err
}

// UpdateRunStatus records the terminal status of a run
func (s *Store) UpdateRunStatus(id string, status domain.ProcessStatus, finishedAt time.Time, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?
	`, string(status), finishedAt, errorMessage, id)
	return err
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, target, status, started_at, finished_at, error_message
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRecent returns the most recent runs, newest first
func (s *Store) ListRecent(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, target, status, started_at, finished_at, error_message
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scannable) (*Run, error) {
	var run Run
	var kind, status string
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &kind, &run.Target, &status, &run.StartedAt, &finishedAt, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}

	run.Kind = domain.ProcessKind(kind)
	run.Status = domain.ProcessStatus(status)
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
