// Package store wraps SQLite access for clips, analysis reports, and jobs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clips (
            clip_id TEXT PRIMARY KEY,
            filename TEXT,
            status TEXT,
            last_stage TEXT,
            last_error TEXT,
            frames INTEGER DEFAULT 0,
            duration REAL DEFAULT 0,
            people_json TEXT,
            created_at TIMESTAMP,
            updated_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS analyses (
            id TEXT PRIMARY KEY,
            clip_id TEXT,
            participant TEXT,
            report_json TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_clip ON analyses(clip_id);`,
		`CREATE TABLE IF NOT EXISTS jobs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            clip_id TEXT,
            stage TEXT,
            status TEXT,
            params_json TEXT,
            idempotency_key TEXT,
            created_at TIMESTAMP,
            updated_at TIMESTAMP,
            started_at TIMESTAMP,
            finished_at TIMESTAMP
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_idem ON jobs(idempotency_key);`,
		`CREATE TABLE IF NOT EXISTS job_logs (
            job_id INTEGER,
            line TEXT,
            created_at TIMESTAMP
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Clip is a landmark dump registered with the service.
type Clip struct {
	ClipID     string    `json:"clip_id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	LastStage  string    `json:"last_stage"`
	LastError  *string   `json:"last_error"`
	Frames     int       `json:"frames"`
	Duration   float64   `json:"duration"`
	PeopleJSON *string   `json:"people_json"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Analysis is one persisted report. The report itself is stored as the
// JSON produced at assembly time and never rewritten.
type Analysis struct {
	ID          string    `json:"id"`
	ClipID      string    `json:"clip_id"`
	Participant string    `json:"participant"`
	ReportJSON  string    `json:"report_json"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is a pipeline job persisted to DB.
type Job struct {
	ID             int64      `json:"id"`
	ClipID         string     `json:"clip_id"`
	Stage          string     `json:"stage"`
	Status         string     `json:"status"`
	ParamsJSON     string     `json:"params_json"`
	IdempotencyKey string     `json:"idempotency_key"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

func (s *Store) UpsertClip(ctx context.Context, clipID, filename, stage, status string, errMsg *string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO clips(clip_id, filename, status, last_stage, last_error, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(clip_id) DO UPDATE SET updated_at=excluded.updated_at, status=excluded.status, last_stage=excluded.last_stage, last_error=excluded.last_error`,
		clipID, filename, status, stage, errMsg, ts, ts)
	return err
}

func (s *Store) SetClipMeta(ctx context.Context, clipID string, frames int, duration float64, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE clips SET frames=?, duration=?, updated_at=? WHERE clip_id=?`,
		frames, duration, ts, clipID)
	return err
}

func (s *Store) SetClipPeople(ctx context.Context, clipID, peopleJSON string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE clips SET people_json=?, updated_at=? WHERE clip_id=?`,
		peopleJSON, ts, clipID)
	return err
}

func (s *Store) GetClip(ctx context.Context, clipID string) (*Clip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT clip_id, filename, status, last_stage, last_error, frames, duration, people_json, created_at, updated_at FROM clips WHERE clip_id=?`, clipID)
	var c Clip
	var errMsg, people sql.NullString
	switch err := row.Scan(&c.ClipID, &c.Filename, &c.Status, &c.LastStage, &errMsg, &c.Frames, &c.Duration, &people, &c.CreatedAt, &c.UpdatedAt); err {
	case nil:
		if errMsg.Valid {
			c.LastError = &errMsg.String
		}
		if people.Valid {
			c.PeopleJSON = &people.String
		}
		return &c, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (s *Store) ListClips(ctx context.Context, limit int) ([]Clip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT clip_id, filename, status, last_stage, last_error, frames, duration, people_json, created_at, updated_at FROM clips ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clips []Clip
	for rows.Next() {
		var c Clip
		var errMsg, people sql.NullString
		if err := rows.Scan(&c.ClipID, &c.Filename, &c.Status, &c.LastStage, &errMsg, &c.Frames, &c.Duration, &people, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			c.LastError = &errMsg.String
		}
		if people.Valid {
			c.PeopleJSON = &people.String
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

// SaveAnalysis writes one assembled report. Reports are immutable, so an
// existing id is never overwritten.
func (s *Store) SaveAnalysis(ctx context.Context, a *Analysis) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO analyses(id, clip_id, participant, report_json, created_at) VALUES(?,?,?,?,?)`,
		a.ID, a.ClipID, a.Participant, a.ReportJSON, a.CreatedAt)
	return err
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, clip_id, participant, report_json, created_at FROM analyses WHERE id=?`, id)
	var a Analysis
	switch err := row.Scan(&a.ID, &a.ClipID, &a.Participant, &a.ReportJSON, &a.CreatedAt); err {
	case nil:
		return &a, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

// ListAnalyses returns recent analyses, optionally filtered by clip.
func (s *Store) ListAnalyses(ctx context.Context, clipID string, limit int) ([]Analysis, error) {
	query := `SELECT id, clip_id, participant, report_json, created_at FROM analyses ORDER BY created_at DESC LIMIT ?`
	args := []any{limit}
	if clipID != "" {
		query = `SELECT id, clip_id, participant, report_json, created_at FROM analyses WHERE clip_id=? ORDER BY created_at DESC LIMIT ?`
		args = []any{clipID, limit}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.ClipID, &a.Participant, &a.ReportJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) RecordJob(ctx context.Context, j *Job) (*Job, error) {
	if j.ParamsJSON == "" {
		j.ParamsJSON = "{}"
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO jobs(clip_id, stage, status, params_json, idempotency_key, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		j.ClipID, j.Stage, j.Status, j.ParamsJSON, j.IdempotencyKey, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	j.ID = id
	return j, nil
}

// FetchJobByIdempotency returns existing job if present.
func (s *Store) FetchJobByIdempotency(ctx context.Context, key string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, clip_id, stage, status, params_json, idempotency_key, created_at, updated_at, started_at, finished_at FROM jobs WHERE idempotency_key=?`, key)
	return scanJob(row)
}

func (s *Store) MarkJobStarted(ctx context.Context, id int64, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET status=?, started_at=?, updated_at=? WHERE id=?`, "running", ts, ts, id)
	return err
}

func (s *Store) MarkJobFinished(ctx context.Context, id int64, status string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET status=?, finished_at=?, updated_at=? WHERE id=?`, status, ts, ts, id)
	return err
}

func (s *Store) AppendJobLog(ctx context.Context, id int64, line string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO job_logs(job_id, line, created_at) VALUES(?,?,?)`, id, line, ts)
	return err
}

func (s *Store) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, clip_id, stage, status, params_json, idempotency_key, created_at, updated_at, started_at, finished_at FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []Job
	for rows.Next() {
		var j Job
		var started, finished sql.NullTime
		if err := rows.Scan(&j.ID, &j.ClipID, &j.Stage, &j.Status, &j.ParamsJSON, &j.IdempotencyKey, &j.CreatedAt, &j.UpdatedAt, &started, &finished); err != nil {
			return nil, err
		}
		if started.Valid {
			j.StartedAt = &started.Time
		}
		if finished.Valid {
			j.FinishedAt = &finished.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) JobLogs(ctx context.Context, jobID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT line FROM job_logs WHERE job_id=? ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

var ErrConflict = errors.New("idempotent job already exists")

// InsertJobIdempotent records a job if its idempotency key is new.
func (s *Store) InsertJobIdempotent(ctx context.Context, j *Job) (*Job, error) {
	existing, err := s.FetchJobByIdempotency(ctx, j.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrConflict
	}
	return s.RecordJob(ctx, j)
}

// UpdateClipStage updates the clip record when a stage completes.
func (s *Store) UpdateClipStage(ctx context.Context, clipID, stage, status string, errMsg *string, ts time.Time) error {
	return s.UpsertClip(ctx, clipID, clipID, stage, status, errMsg, ts)
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var started, finished sql.NullTime
	switch err := row.Scan(&j.ID, &j.ClipID, &j.Stage, &j.Status, &j.ParamsJSON, &j.IdempotencyKey, &j.CreatedAt, &j.UpdatedAt, &started, &finished); err {
	case nil:
		if started.Valid {
			j.StartedAt = &started.Time
		}
		if finished.Valid {
			j.FinishedAt = &finished.Time
		}
		return &j, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}
