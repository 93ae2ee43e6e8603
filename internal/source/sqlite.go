package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/sqlutil"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	object TEXT NOT NULL COLLATE NOCASE,
	seq INTEGER NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (object, seq)
);
`

// SQLiteService answers queries from records stored as JSON documents in a
// SQLite table, one row per record, ordered by seq within each object.
type SQLiteService struct {
	*paged
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, pageSize, batchSize int) (*SQLiteService, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteService{db: db}
	s.paged = &paged{table: s, pageSize: positive(pageSize, 200), batchSize: positive(batchSize, 2000)}
	return s, nil
}

func (s *SQLiteService) Close() error {
	return s.db.Close()
}

// Import replaces the stored records of object.
func (s *SQLiteService) Import(ctx context.Context, object string, recs []*record.Record) (err error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return fmt.Errorf("import: object name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE object = ?`, object); err != nil {
		return fmt.Errorf("clear %s: %w", object, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (object, seq, body) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		body, mErr := json.Marshal(rec)
		if mErr != nil {
			err = fmt.Errorf("encode record %d: %w", i, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, object, i, string(body)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Objects lists the stored objects with their record counts.
func (s *SQLiteService) Objects(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT object, COUNT(*) FROM records GROUP BY object ORDER BY object`)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return sqlutil.ScanCounts(rows)
}

func (s *SQLiteService) count(ctx context.Context, object string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE object = ?`, object).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", object, err)
	}
	if n == 0 {
		return 0, &Error{
			Err:     fmt.Errorf("%w: %s", ErrUnknownObject, object),
			Message: fmt.Sprintf("sObject type '%s' is not supported.", object),
			Code:    "INVALID_TYPE",
		}
	}
	return n, nil
}

func (s *SQLiteService) slice(ctx context.Context, object string, offset, limit int) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM records WHERE object = ? ORDER BY seq LIMIT ? OFFSET ?`,
		object, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", object, err)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (*record.Record, error) {
		var body string
		if err := r.Scan(&body); err != nil {
			return nil, err
		}
		rec, err := record.DecodeRecord(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("decode %s record: %w", object, err)
		}
		return rec, nil
	})
}
