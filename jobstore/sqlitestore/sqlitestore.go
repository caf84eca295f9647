// Package sqlitestore persists job records as JSON text in a SQLite
// table, mirroring the original SQLiteStore one column-for-blob,
// read-modify-write design.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

const (
	table   = "jobs"
	keyCol  = "id"
	dataCol = "data"
)

// Store is a SQLite-backed Store. Every job is one row: an id primary
// key and a JSON-text data column.
type Store struct {
	db   *sql.DB
	file string
}

// New opens (creating if necessary) the SQLite database at file and
// ensures the jobs table exists.
func New(file string) (*Store, error) {
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", file, err)
	}

	s := &Store{db: db, file: file}
	if err := s.ensureTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.InfoF("sqlitestore: initialized with file=%s", file)
	return s, nil
}

func (s *Store) ensureTable() error {
	_, err := s.db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY NOT NULL, %s TEXT NOT NULL)`,
		table, keyCol, dataCol))
	return err
}

func (s *Store) LoadAll(ctx context.Context) ([]*jobmodel.PersistedJob, error) {
	logger.InfoF("sqlitestore: loading jobs from %s", s.file)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, %s FROM %s`, keyCol, dataCol, table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*jobmodel.PersistedJob
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		job, err := decodeJob(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (?, ?)`, table, keyCol, dataCol), id, string(encoded))
	return err
}

func (s *Store) Update(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, table, dataCol, keyCol), string(encoded), id)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, keyCol), id)
	return err
}

func decodeJob(id, data string) (*jobmodel.PersistedJob, error) {
	var job jobmodel.PersistedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("sqlitestore: decode row %s: %w", id, err)
	}
	job.ID = id
	return &job, nil
}
