// Package savestore persists save snapshots in SQLite, PostgreSQL or plain
// files.
package savestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/config"
	"github.com/LivingInDrm/sudanlike/internal/game"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("save not found")
	ErrInvalidID = errors.New("invalid save id")
	ErrUnsealed  = errors.New("snapshot is not sealed")
)

// Store persists snapshots keyed by save id. Save overwrites an existing
// save with the same id. Load verifies the snapshot checksum.
type Store interface {
	Save(ctx context.Context, snap *game.SaveSnapshot) error
	Load(ctx context.Context, saveID string) (*game.SaveSnapshot, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, saveID string) error
	Close() error
}

// Summary describes a save without decoding it.
type Summary struct {
	SaveID     string          `json:"save_id"`
	SavedAt    time.Time       `json:"saved_at"`
	Day        int             `json:"day"`
	Difficulty game.Difficulty `json:"difficulty"`
	Checksum   string          `json:"checksum"`
}

func summarize(s *game.SaveSnapshot) Summary {
	return Summary{
		SaveID:     s.SaveID,
		SavedAt:    s.Timestamp.UTC(),
		Day:        s.GameState.CurrentDay,
		Difficulty: s.Difficulty,
		Checksum:   s.Checksum,
	}
}

var saveIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateID rejects ids that are empty, too long or unsafe as file names.
func ValidateID(id string) error {
	if !saveIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func checkSnapshot(snap *game.SaveSnapshot) error {
	if snap == nil {
		return fmt.Errorf("save: nil snapshot")
	}
	if err := ValidateID(snap.SaveID); err != nil {
		return err
	}
	if snap.Checksum == "" {
		return fmt.Errorf("%w: %s", ErrUnsealed, snap.SaveID)
	}
	return snap.VerifyChecksum()
}

// decodeSnapshot turns a stored payload back into a snapshot and holds it
// to the same rules Save does. The payload must belong to saveID.
func decodeSnapshot(saveID string, payload []byte) (*game.SaveSnapshot, error) {
	snap, err := game.UnmarshalSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", saveID, err)
	}
	if err := checkSnapshot(snap); err != nil {
		return nil, fmt.Errorf("load %s: %w", saveID, err)
	}
	if snap.SaveID != saveID {
		return nil, fmt.Errorf("load %s: payload belongs to %q: %w", saveID, snap.SaveID, game.ErrChecksumMismatch)
	}
	return snap, nil
}

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL, cfg.MaxConns, logger)
	case config.DriverFile:
		return OpenFile(cfg.FileDir, logger)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
