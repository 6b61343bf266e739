// Package dice implements the staged dice-check protocol and the pure
// dice-pool calculations that feed it.
package dice

import (
	"errors"
	"slices"
)

const (
	Sides            = 10
	SuccessThreshold = 7
	ExplosionValue   = 10
	MaxDicePool      = 20
	MaxExplosionDice = 20
)

var (
	ErrNoActiveCheck = errors.New("no active dice check")
	ErrWrongPhase    = errors.New("operation not valid in current phase")
	ErrNegativeCount = errors.New("count must not be negative")
)

// Source draws die faces. *random.Source satisfies it.
type Source interface {
	RollDie(sides int) int
}

// Phase is a stage of a check.
type Phase string

const (
	PhaseRolling    Phase = "rolling"
	PhaseReroll     Phase = "reroll"
	PhaseGoldenDice Phase = "golden_dice"
	PhaseResult     Phase = "result"
)

// Result is the outcome of a finished check.
type Result string

const (
	ResultSuccess         Result = "success"
	ResultPartialSuccess  Result = "partial_success"
	ResultFailure         Result = "failure"
	ResultCriticalFailure Result = "critical_failure"
)

// Valid reports whether r is a known result.
func (r Result) Valid() bool {
	switch r {
	case ResultSuccess, ResultPartialSuccess, ResultFailure, ResultCriticalFailure:
		return true
	}
	return false
}

// Roll is one die. OriginalValue is set only when Rerolled.
type Roll struct {
	Value         int  `json:"value"`
	Success       bool `json:"is_success"`
	Explosion     bool `json:"is_explosion"`
	Rerolled      bool `json:"is_rerolled"`
	OriginalValue int  `json:"original_value,omitempty"`
}

func newRoll(value int) Roll {
	return Roll{
		Value:     value,
		Success:   value >= SuccessThreshold,
		Explosion: value == ExplosionValue,
	}
}

// State is the full state of one check.
type State struct {
	DicePool        int    `json:"dice_pool"`
	Target          int    `json:"target"`
	Rolls           []Roll `json:"rolls"`
	ExplosionRolls  []Roll `json:"explosion_rolls"`
	RerollAvailable int    `json:"reroll_available"`
	RerollUsed      int    `json:"reroll_used"`
	GoldenDiceUsed  int    `json:"golden_dice_used"`
	SuccessCount    int    `json:"success_count"`
	Result          Result `json:"result,omitempty"`
	Phase           Phase  `json:"phase"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Rolls = slices.Clone(s.Rolls)
	s.ExplosionRolls = slices.Clone(s.ExplosionRolls)
	return s
}

// Values returns the face values of the primary rolls.
func (s State) Values() []int {
	out := make([]int, len(s.Rolls))
	for i, r := range s.Rolls {
		out[i] = r.Value
	}
	return out
}

// DetermineResult maps a success count against a target. The near-miss
// band (within two of the target) only exists for targets above two.
func DetermineResult(successes, target int) Result {
	switch {
	case successes >= target:
		return ResultSuccess
	case successes == 0:
		return ResultCriticalFailure
	case target > 2 && successes >= target-2:
		return ResultPartialSuccess
	default:
		return ResultFailure
	}
}
