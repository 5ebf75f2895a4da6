// Package sqlitecache is a SQLite-backed cache.Store for durable local
// certificate state.
package sqlitecache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
)

// Store implements cache.Store on a single SQLite database file.
//
// The monotonic-height guard of ApplySync is enforced inside one SQL
// transaction, so concurrent reconciliations of the same record cannot
// interleave a stale write between read and update.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and bootstraps the
// schema. Pass ":memory:" for an ephemeral store.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	s.log.Debug("certificate cache ready", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	query := `CREATE TABLE IF NOT EXISTS certificates (
		local_id TEXT PRIMARY KEY,
		chain_id INTEGER,
		status TEXT NOT NULL,
		student_name TEXT DEFAULT '',
		course_ref TEXT DEFAULT '',
		metadata_url TEXT DEFAULT '',
		content_digest TEXT DEFAULT '',
		synced_height INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, localID string) (*cache.Record, error) {
	query := `
		SELECT local_id, chain_id, status, student_name, course_ref,
		       metadata_url, content_digest, synced_height
		FROM certificates
		WHERE local_id = ?
	`

	var rec cache.Record
	var chainID sql.NullInt64
	var status string
	err := s.db.QueryRowContext(ctx, query, localID).Scan(
		&rec.LocalID, &chainID, &status, &rec.StudentName, &rec.CourseRef,
		&rec.MetadataURL, &rec.ContentDigest, &rec.SyncedHeight,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get certificate record: %w", err)
	}
	rec.Status = cache.Status(status)
	if chainID.Valid {
		id := uint64(chainID.Int64)
		rec.ChainID = &id
	}
	return &rec, nil
}

func (s *Store) Put(ctx context.Context, r *cache.Record) error {
	query := `
		INSERT INTO certificates
			(local_id, chain_id, status, student_name, course_ref,
			 metadata_url, content_digest, synced_height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(local_id) DO UPDATE SET
			chain_id = excluded.chain_id,
			status = excluded.status,
			student_name = excluded.student_name,
			course_ref = excluded.course_ref,
			metadata_url = excluded.metadata_url,
			content_digest = excluded.content_digest,
			synced_height = excluded.synced_height,
			updated_at = CURRENT_TIMESTAMP
	`

	var chainID sql.NullInt64
	if r.ChainID != nil {
		chainID = sql.NullInt64{Int64: int64(*r.ChainID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		r.LocalID, chainID, string(r.Status), r.StudentName, r.CourseRef,
		r.MetadataURL, r.ContentDigest, r.SyncedHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to store certificate record: %w", err)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, localID string, status cache.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE certificates
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE local_id = ? AND chain_id IS NOT NULL
	`, string(status), localID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		// Distinguish a missing row from a draft without a ledger id.
		if _, err := s.Get(ctx, localID); err != nil {
			return err
		}
		return cache.ErrNoChainID
	}
	return nil
}

func (s *Store) ApplySync(ctx context.Context, localID string, status cache.Status, height uint64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	var chainID sql.NullInt64
	var current string
	var syncedHeight uint64
	err = tx.QueryRowContext(ctx, `
		SELECT chain_id, status, synced_height FROM certificates WHERE local_id = ?
	`, localID).Scan(&chainID, &current, &syncedHeight)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, cache.ErrNotFound
		}
		return false, fmt.Errorf("failed to read certificate record: %w", err)
	}
	if !chainID.Valid {
		return false, cache.ErrNoChainID
	}
	if height < syncedHeight {
		return false, cache.ErrStaleSnapshot
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE certificates
		SET status = ?, synced_height = ?, updated_at = CURRENT_TIMESTAMP
		WHERE local_id = ?
	`, string(status), height, localID)
	if err != nil {
		return false, fmt.Errorf("failed to apply sync: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit sync: %w", err)
	}

	changed := cache.Status(current) != status
	if changed {
		s.log.Info("certificate status reconciled",
			"local_id", localID, "from", current, "to", string(status), "height", height)
	}
	return changed, nil
}
