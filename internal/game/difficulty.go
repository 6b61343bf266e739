package game

import (
	"fmt"
	"strings"
)

// Difficulty selects the starting conditions of a game.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyNormal    Difficulty = "normal"
	DifficultyHard      Difficulty = "hard"
	DifficultyNightmare Difficulty = "nightmare"
)

// DifficultySettings are the starting conditions for one difficulty.
type DifficultySettings struct {
	ExecutionDays int
	InitialGold   int
	InitialCards  int
}

var difficulties = map[Difficulty]DifficultySettings{
	DifficultyEasy:      {ExecutionDays: 21, InitialGold: 50, InitialCards: 5},
	DifficultyNormal:    {ExecutionDays: 14, InitialGold: 30, InitialCards: 3},
	DifficultyHard:      {ExecutionDays: 7, InitialGold: 15, InitialCards: 2},
	DifficultyNightmare: {ExecutionDays: 5, InitialGold: 10, InitialCards: 1},
}

// Settings returns the starting conditions for d.
func (d Difficulty) Settings() (DifficultySettings, bool) {
	s, ok := difficulties[d]
	return s, ok
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	_, ok := difficulties[d]
	return ok
}

// ParseDifficulty parses a case-insensitive difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
	return d, nil
}
