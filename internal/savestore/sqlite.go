package savestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/game"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite stores saves in a single SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at path and applies pending
// migrations.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug("sqlite save store opened", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, snap *game.SaveSnapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}
	payload, err := game.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	sum := summarize(snap)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO saves (save_id, saved_at, day, difficulty, checksum, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (save_id) DO UPDATE SET
    saved_at = excluded.saved_at,
    day = excluded.day,
    difficulty = excluded.difficulty,
    checksum = excluded.checksum,
    payload = excluded.payload`,
		sum.SaveID, sum.SavedAt.UnixMilli(), sum.Day, string(sum.Difficulty), sum.Checksum, payload,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", snap.SaveID, err)
	}
	s.logger.Debug("save stored", zap.String("save_id", snap.SaveID), zap.Int("bytes", len(payload)))
	return nil
}

func (s *SQLite) Load(ctx context.Context, saveID string) (*game.SaveSnapshot, error) {
	if err := ValidateID(saveID); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM saves WHERE save_id = ?`, saveID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, saveID)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", saveID, err)
	}
	snap, err := decodeSnapshot(saveID, payload)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT save_id, saved_at, day, difficulty, checksum
FROM saves
ORDER BY saved_at DESC, save_id`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum        Summary
			savedAt    int64
			difficulty string
		)
		if err := rows.Scan(&sum.SaveID, &savedAt, &sum.Day, &difficulty, &sum.Checksum); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sum.SavedAt = time.UnixMilli(savedAt).UTC()
		sum.Difficulty = game.Difficulty(difficulty)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, saveID string) error {
	if err := ValidateID(saveID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE save_id = ?`, saveID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", saveID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, saveID)
	}
	return nil
}

const migrationTable = "schema_migrations"

// migrate applies every .sql file under root once, in name order, each in
// its own transaction. Only the "-- +migrate Up" section is executed.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var applied int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+migrationTable+` WHERE name = ?`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}
		content, err := fs.ReadFile(fsys, root+"/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	body := content[start+len(up):]
	if end := strings.Index(body, down); end != -1 {
		body = body[:end]
	}
	return body
}
