package game

import "errors"

var (
	ErrNotInitialized     = errors.New("game not initialized")
	ErrUnknownDifficulty  = errors.New("unknown difficulty")
	ErrChecksumMismatch   = errors.New("snapshot checksum mismatch")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrGameOver           = errors.New("game is over")
)
