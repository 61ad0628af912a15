package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries to a SQLite database. Document ids are kept
// in a side table so doc_id queries use an index.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS feeds (
        feed_id TEXT PRIMARY KEY,
        ts INTEGER,
        datasource TEXT,
        status TEXT,
        entry TEXT
    );
    CREATE TABLE IF NOT EXISTS feed_docs (
        feed_id TEXT,
        doc_id TEXT
    );
    CREATE INDEX IF NOT EXISTS feed_docs_doc ON feed_docs(doc_id);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the entry and its document ids in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO feeds (feed_id, ts, datasource, status, entry) VALUES (?, ?, ?, ?, ?)`,
		e.FeedID, e.Timestamp.UnixNano(), e.Datasource, e.Status, string(b)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_docs WHERE feed_id = ?`, e.FeedID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO feed_docs (feed_id, doc_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, id := range e.DocIDs {
		if _, err := stmt.ExecContext(ctx, e.FeedID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns entries matching q ordered by time.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Entry, error) {
	var args []any
	query := `SELECT entry FROM feeds WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Datasource != "" {
		query += ` AND datasource = ?`
		args = append(args, q.Datasource)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	if q.DocID != "" {
		query += ` AND feed_id IN (SELECT feed_id FROM feed_docs WHERE doc_id = ?)`
		args = append(args, q.DocID)
	}
	query += ` ORDER BY ts`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
