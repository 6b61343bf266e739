package savestore

import (
	"cmp"
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/game"
	"go.uber.org/zap"
)

const (
	fileExt     = ".save"
	fileVersion = 1
)

// fileHeader is the first gob value of a save file. The snapshot follows as
// a JSON payload so empty lists survive the round trip.
type fileHeader struct {
	Version    int
	SaveID     string
	SavedAt    time.Time
	Day        int
	Difficulty string
	Checksum   string
}

// File stores one gzip file per save in a directory.
type File struct {
	dir    string
	logger *zap.Logger
}

// OpenFile creates dir if needed.
func OpenFile(dir string, logger *zap.Logger) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("save directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	return &File{dir: dir, logger: logger}, nil
}

func (f *File) Close() error { return nil }

func (f *File) path(saveID string) string {
	return filepath.Join(f.dir, saveID+fileExt)
}

func (f *File) Save(ctx context.Context, snap *game.SaveSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSnapshot(snap); err != nil {
		return err
	}
	payload, err := game.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	// Write to a temp file and rename so a crash never leaves half a save.
	tmp, err := os.CreateTemp(f.dir, snap.SaveID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeSave(tmp, snap, payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write save %s: %w", snap.SaveID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close save %s: %w", snap.SaveID, err)
	}
	if err := os.Rename(tmp.Name(), f.path(snap.SaveID)); err != nil {
		return fmt.Errorf("commit save %s: %w", snap.SaveID, err)
	}
	f.logger.Debug("save written", zap.String("save_id", snap.SaveID), zap.String("dir", f.dir))
	return nil
}

func writeSave(file *os.File, snap *game.SaveSnapshot, payload []byte) error {
	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	sum := summarize(snap)
	header := fileHeader{
		Version:    fileVersion,
		SaveID:     sum.SaveID,
		SavedAt:    sum.SavedAt,
		Day:        sum.Day,
		Difficulty: string(sum.Difficulty),
		Checksum:   sum.Checksum,
	}
	if err := enc.Encode(&header); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if err := enc.Encode(payload); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode payload: %w", err)
	}
	return zw.Close()
}

// readSave decodes the header and, when withPayload is set, the snapshot.
func readSave(path string, withPayload bool) (fileHeader, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return fileHeader{}, nil, err
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return fileHeader{}, nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header fileHeader
	if err := dec.Decode(&header); err != nil {
		return fileHeader{}, nil, fmt.Errorf("decode header: %w", err)
	}
	if header.Version != fileVersion {
		return fileHeader{}, nil, fmt.Errorf("unsupported save file version: %d", header.Version)
	}
	if !withPayload {
		return header, nil, nil
	}
	var payload []byte
	if err := dec.Decode(&payload); err != nil {
		return fileHeader{}, nil, fmt.Errorf("decode payload: %w", err)
	}
	return header, payload, nil
}

func (f *File) Load(ctx context.Context, saveID string) (*game.SaveSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateID(saveID); err != nil {
		return nil, err
	}
	header, payload, err := readSave(f.path(saveID), true)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, saveID)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", saveID, err)
	}
	snap, err := decodeSnapshot(saveID, payload)
	if err != nil {
		return nil, err
	}
	if snap.SaveID != header.SaveID || snap.Checksum != header.Checksum {
		return nil, fmt.Errorf("load %s: header does not match snapshot: %w", saveID, game.ErrChecksumMismatch)
	}
	return snap, nil
}

// List reads only the headers. Unreadable files are skipped with a warning.
func (f *File) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	out := []Summary{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		header, _, err := readSave(filepath.Join(f.dir, e.Name()), false)
		if err != nil {
			f.logger.Warn("skipping unreadable save", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, Summary{
			SaveID:     header.SaveID,
			SavedAt:    header.SavedAt.UTC(),
			Day:        header.Day,
			Difficulty: game.Difficulty(header.Difficulty),
			Checksum:   header.Checksum,
		})
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.SaveID, b.SaveID)
	})
	return out, nil
}

func (f *File) Delete(ctx context.Context, saveID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(saveID); err != nil {
		return err
	}
	err := os.Remove(f.path(saveID))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, saveID)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", saveID, err)
	}
	return nil
}
