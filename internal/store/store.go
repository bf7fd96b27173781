// Package store persists closing-angle scans in an embedded SQLite
// database so repeated runs skip the rotation sweep.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/internal/version"
	"github.com/chazu/foldframe/pkg/search"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	FileName = "scans.sqlite"

	// schemaVersion tracks the table layout. Bump it with a migration step.
	schemaVersion = 1

	opTimeout = 5 * time.Second
)

// ScanStore is a search.ScanCache backed by SQLite.
type ScanStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

var _ search.ScanCache = (*ScanStore)(nil)

// DefaultPath returns the per-user cache database path.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(dir, "foldframe", FileName), nil
}

// Open creates or opens the database at path, enables WAL mode and
// ensures the schema exists.
func Open(path string) (*ScanStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}

	n, err := dropStale(ctx, db, search.ScanFingerprint())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		l.Info("stale scans dropped", slog.Int64("rows", n))
	}

	l.Debug("store ready")
	return &ScanStore{db: db, path: path, log: applog.WithComponent("store")}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scans (
			key         TEXT PRIMARY KEY,
			modules     INTEGER NOT NULL,
			candidates  TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`,
			schemaVersion, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case cur > schemaVersion:
		return fmt.Errorf("store schema %d is newer than supported %d", cur, schemaVersion)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// rowKey is the stored form of key, prefixed with the scan fingerprint.
func rowKey(key search.ScanKey) string {
	return search.ScanFingerprint() + "/" + key.String()
}

// dropStale deletes scans stored under another scan fingerprint.
func dropStale(ctx context.Context, db *sql.DB, fingerprint string) (int64, error) {
	prefix := fingerprint + "/"
	res, err := db.ExecContext(ctx, `DELETE FROM scans WHERE substr(key, 1, length(?)) <> ?`, prefix, prefix)
	if err != nil {
		return 0, fmt.Errorf("drop stale scans: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Path returns the database file path.
func (s *ScanStore) Path() string { return s.path }

// LoadScan implements search.ScanCache.
func (s *ScanStore) LoadScan(key search.ScanKey) ([]search.Candidate, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT candidates FROM scans WHERE key=?`, rowKey(key)).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load scan %s: %w", key, err)
	}

	var cands []search.Candidate
	if err := json.Unmarshal([]byte(raw), &cands); err != nil {
		return nil, false, fmt.Errorf("decode scan %s: %w", key, err)
	}
	s.log.Debug("scan hit", slog.String("key", key.String()), slog.Int("candidates", len(cands)))
	return cands, true, nil
}

// StoreScan implements search.ScanCache. An existing scan for key is
// replaced.
func (s *ScanStore) StoreScan(key search.ScanKey, cands []search.Candidate) error {
	if cands == nil {
		cands = []search.Candidate{}
	}
	raw, err := json.Marshal(cands)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (key, modules, candidates, created_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET candidates=excluded.candidates, created_at=excluded.created_at`,
		rowKey(key), key.Modules, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store scan %s: %w", key, err)
	}
	return nil
}

// Count returns the number of stored scans.
func (s *ScanStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

// Purge removes stored scans. A positive modules limits the purge to
// scans of that module count.
func (s *ScanStore) Purge(ctx context.Context, modules int) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if modules > 0 {
		res, err = s.db.ExecContext(ctx, `DELETE FROM scans WHERE modules=?`, modules)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM scans`)
	}
	if err != nil {
		return 0, fmt.Errorf("purge scans: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Info("scans purged", slog.Int64("rows", n), slog.Int("modules", modules))
	return n, nil
}

// Close closes the database.
func (s *ScanStore) Close() error {
	return s.db.Close()
}
