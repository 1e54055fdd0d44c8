// Package store persists evaluation results to a SQLite database keyed by
// (team, commit_hash), mirroring the scoring store the sandbox writes to.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"battery-eval/internal/eval"
)

// ErrNotFound is returned when a team has no submissions.
var ErrNotFound = errors.New("submission not found")

type SubmissionStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database and runs migrations.
func Open(path string) (*SubmissionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the leaderboard can read while evaluations write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SubmissionStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SubmissionStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			team         TEXT NOT NULL,
			commit_hash  TEXT NOT NULL,
			submitted_at INTEGER NOT NULL,
			status       TEXT NOT NULL,
			class_name   TEXT,
			score        REAL,
			mean_profit  REAL,
			std_profit   REAL,
			num_runs     INTEGER,
			payload      TEXT NOT NULL,
			PRIMARY KEY (team, commit_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_ts ON submissions(submitted_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// IsSubmitted reports whether this (team, commit) pair was already scored.
func (s *SubmissionStore) IsSubmitted(team, commitHash string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM submissions WHERE team = ? AND commit_hash = ?`,
		team, commitHash,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save upserts one evaluation result. The full result travels as JSON in
// the payload column; scalar columns exist for leaderboard queries.
func (s *SubmissionStore) Save(res *eval.SubmissionResult) error {
	if res.Team == "" {
		return errors.New("team (primary key) is empty")
	}
	if res.CommitHash == "" {
		return errors.New("commit_hash (primary key) is empty")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO submissions
			(team, commit_hash, submitted_at, status, class_name, score, mean_profit, std_profit, num_runs, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Team, res.CommitHash, res.SubmittedAt, res.Status, res.ClassName,
		nullable(res.Score), nullable(res.MeanProfit), nullable(res.StdProfit),
		res.NumRuns, string(payload),
	)
	return err
}

// Latest returns a team's most recent submission.
func (s *SubmissionStore) Latest(team string) (*eval.SubmissionResult, error) {
	row := s.db.QueryRow(
		`SELECT payload FROM submissions WHERE team = ? ORDER BY submitted_at DESC LIMIT 1`,
		team,
	)
	return scanPayload(row)
}

// History returns all of a team's submissions, newest first.
func (s *SubmissionStore) History(team string) ([]*eval.SubmissionResult, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM submissions WHERE team = ? ORDER BY submitted_at DESC`,
		team,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*eval.SubmissionResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var res eval.SubmissionResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (s *SubmissionStore) Close() error { return s.db.Close() }

type payloadRow interface {
	Scan(dest ...any) error
}

func scanPayload(row payloadRow) (*eval.SubmissionResult, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var res eval.SubmissionResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	return &res, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
