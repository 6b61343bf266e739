package savestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/LivingInDrm/sudanlike/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS saves (
    save_id    TEXT PRIMARY KEY,
    saved_at   TIMESTAMPTZ NOT NULL,
    day        INTEGER NOT NULL,
    difficulty TEXT NOT NULL,
    checksum   TEXT NOT NULL,
    payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves (saved_at DESC);
`

// Postgres stores saves in a PostgreSQL table through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects, pings and ensures the schema.
func OpenPostgres(ctx context.Context, url string, maxConns int32, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("postgres save store opened",
		zap.Int32("max_conns", stats.MaxConns()),
		zap.Int32("total_conns", stats.TotalConns()),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, snap *game.SaveSnapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}
	payload, err := game.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	sum := summarize(snap)
	_, err = p.pool.Exec(ctx, `
INSERT INTO saves (save_id, saved_at, day, difficulty, checksum, payload)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (save_id) DO UPDATE SET
    saved_at = EXCLUDED.saved_at,
    day = EXCLUDED.day,
    difficulty = EXCLUDED.difficulty,
    checksum = EXCLUDED.checksum,
    payload = EXCLUDED.payload`,
		sum.SaveID, sum.SavedAt, sum.Day, string(sum.Difficulty), sum.Checksum, string(payload),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", snap.SaveID, err)
	}
	p.logger.Debug("save stored", zap.String("save_id", snap.SaveID))
	return nil
}

func (p *Postgres) Load(ctx context.Context, saveID string) (*game.SaveSnapshot, error) {
	if err := ValidateID(saveID); err != nil {
		return nil, err
	}
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload::text FROM saves WHERE save_id = $1`, saveID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.pool.Query(ctx, `
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
			difficulty string
		)
		if err := rows.Scan(&sum.SaveID, &sum.SavedAt, &sum.Day, &difficulty, &sum.Checksum); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sum.SavedAt = sum.SavedAt.UTC()
		sum.Difficulty = game.Difficulty(difficulty)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, saveID string) error {
	if err := ValidateID(saveID); err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM saves WHERE save_id = $1`, saveID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", saveID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, saveID)
	}
	return nil
}
