package dice

import (
	"fmt"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"go.uber.org/zap"
)

// Checker runs one check at a time through rolling -> reroll ->
// golden_dice -> result. Automated settlement calls Start, RollInitial and
// Finalize back to back; interactive play calls the phase methods in turn.
type Checker struct {
	rng    Source
	state  *State
	bus    *events.Bus
	logger *zap.Logger
}

// NewChecker creates a checker drawing from rng.
func NewChecker(rng Source, bus *events.Bus, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{rng: rng, bus: bus, logger: logger}
}

// Start begins a new check, discarding any previous one. The pool is
// clamped to [0, MaxDicePool].
func (c *Checker) Start(dicePool, target, rerollAvailable int) State {
	pool := min(max(dicePool, 0), MaxDicePool)
	c.state = &State{
		DicePool:        pool,
		Target:          target,
		Rolls:           []Roll{},
		ExplosionRolls:  []Roll{},
		RerollAvailable: max(rerollAvailable, 0),
		Phase:           PhaseRolling,
	}

	c.logger.Debug("dice check started",
		zap.Int("dice_pool", pool),
		zap.Int("target", target),
		zap.Int("reroll_available", c.state.RerollAvailable),
	)
	c.bus.Publish(events.DiceRollStart, map[string]any{"dicePool": pool, "target": target})
	return c.state.Clone()
}

// RollInitial rolls the pool and resolves explosions.
func (c *Checker) RollInitial() (State, error) {
	if err := c.require(PhaseRolling); err != nil {
		return State{}, err
	}
	s := c.state

	s.Rolls = make([]Roll, 0, s.DicePool)
	triggers := 0
	for i := 0; i < s.DicePool; i++ {
		roll := c.roll()
		if roll.Explosion {
			triggers++
		}
		s.Rolls = append(s.Rolls, roll)
	}
	c.explode(triggers)
	c.recount()

	c.bus.Publish(events.DiceRollResult, map[string]any{
		"rolls":     s.Values(),
		"successes": s.SuccessCount,
	})

	if s.RerollAvailable > 0 {
		s.Phase = PhaseReroll
	} else {
		s.Phase = PhaseGoldenDice
	}
	return s.Clone(), nil
}

// Reroll rerolls the requested primary dice. Indices that are out of range,
// duplicated, already successful or already rerolled are ignored, and at
// most the remaining budget is spent.
func (c *Checker) Reroll(indices []int) (State, error) {
	if err := c.require(PhaseReroll); err != nil {
		return State{}, err
	}
	s := c.state

	eligible := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.Rolls) || slices.Contains(eligible, i) {
			continue
		}
		if r := s.Rolls[i]; r.Success || r.Rerolled {
			continue
		}
		eligible = append(eligible, i)
	}
	if remaining := c.RemainingRerolls(); len(eligible) > remaining {
		eligible = eligible[:remaining]
	}

	newValues := make([]int, 0, len(eligible))
	triggers := 0
	for _, i := range eligible {
		old := s.Rolls[i].Value
		roll := c.roll()
		roll.Rerolled = true
		roll.OriginalValue = old
		s.Rolls[i] = roll
		s.RerollUsed++
		newValues = append(newValues, roll.Value)
		if roll.Explosion {
			triggers++
		}
	}
	c.explode(triggers)
	c.recount()

	c.bus.Publish(events.DiceReroll, map[string]any{"indices": eligible, "newRolls": newValues})

	if s.RerollUsed >= s.RerollAvailable || len(c.FailedRollIndices()) == 0 {
		s.Phase = PhaseGoldenDice
	}
	return s.Clone(), nil
}

// SkipReroll moves on to the golden dice phase.
func (c *Checker) SkipReroll() (State, error) {
	if err := c.require(PhaseReroll); err != nil {
		return State{}, err
	}
	c.state.Phase = PhaseGoldenDice
	return c.state.Clone(), nil
}

// UseGoldenDice adds count guaranteed successes. It may be called several
// times; the caller is responsible for paying for the dice.
func (c *Checker) UseGoldenDice(count int) (State, error) {
	if err := c.require(PhaseGoldenDice); err != nil {
		return State{}, err
	}
	if count < 0 {
		return State{}, fmt.Errorf("%w: golden dice %d", ErrNegativeCount, count)
	}
	c.state.GoldenDiceUsed += count
	c.recount()
	c.bus.Publish(events.DiceGoldenDice, map[string]any{"count": count})
	return c.state.Clone(), nil
}

// SkipGoldenDice finishes the check without golden dice.
func (c *Checker) SkipGoldenDice() (State, error) {
	if err := c.require(PhaseGoldenDice); err != nil {
		return State{}, err
	}
	return c.Finalize()
}

// Finalize computes the result. It is valid in any phase after the initial
// roll and is idempotent once the result is known.
func (c *Checker) Finalize() (State, error) {
	if c.state == nil {
		return State{}, ErrNoActiveCheck
	}
	s := c.state
	switch s.Phase {
	case PhaseRolling:
		return State{}, fmt.Errorf("%w: finalize before initial roll", ErrWrongPhase)
	case PhaseResult:
		return s.Clone(), nil
	}

	s.Phase = PhaseResult
	s.Result = DetermineResult(s.SuccessCount, s.Target)

	c.logger.Debug("dice check finished",
		zap.Int("successes", s.SuccessCount),
		zap.Int("target", s.Target),
		zap.String("result", string(s.Result)),
	)
	c.bus.Publish(events.DiceComplete, map[string]any{"state": s.Clone(), "result": string(s.Result)})
	return s.Clone(), nil
}

// State returns a copy of the active check.
func (c *Checker) State() (State, bool) {
	if c.state == nil {
		return State{}, false
	}
	return c.state.Clone(), true
}

// Phase returns the current phase, empty when no check is active.
func (c *Checker) Phase() Phase {
	if c.state == nil {
		return ""
	}
	return c.state.Phase
}

// AllRolls returns primary rolls followed by explosion rolls.
func (c *Checker) AllRolls() []Roll {
	if c.state == nil {
		return nil
	}
	out := slices.Clone(c.state.Rolls)
	return append(out, c.state.ExplosionRolls...)
}

// FailedRollIndices lists primary dice still eligible for a reroll.
func (c *Checker) FailedRollIndices() []int {
	if c.state == nil {
		return nil
	}
	var out []int
	for i, r := range c.state.Rolls {
		if !r.Success && !r.Rerolled {
			out = append(out, i)
		}
	}
	return out
}

// CanReroll reports whether a reroll would do anything.
func (c *Checker) CanReroll() bool {
	return c.state != nil &&
		c.state.Phase == PhaseReroll &&
		c.RemainingRerolls() > 0 &&
		len(c.FailedRollIndices()) > 0
}

// RemainingRerolls is the unspent reroll budget.
func (c *Checker) RemainingRerolls() int {
	if c.state == nil {
		return 0
	}
	return max(0, c.state.RerollAvailable-c.state.RerollUsed)
}

// Reset discards the active check.
func (c *Checker) Reset() {
	c.state = nil
}

func (c *Checker) require(phase Phase) error {
	if c.state == nil {
		return ErrNoActiveCheck
	}
	if c.state.Phase != phase {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, c.state.Phase, phase)
	}
	return nil
}

func (c *Checker) roll() Roll {
	return newRoll(c.rng.RollDie(Sides))
}

// explode draws one extra die per trigger, chaining on further tens, until
// the per-check explosion budget is spent.
func (c *Checker) explode(triggers int) {
	s := c.state
	pending := triggers
	for pending > 0 && len(s.ExplosionRolls) < MaxExplosionDice {
		pending--
		roll := c.roll()
		s.ExplosionRolls = append(s.ExplosionRolls, roll)
		if roll.Explosion {
			pending++
			c.bus.Publish(events.DiceExplosion, map[string]any{"roll": roll.Value})
		}
	}
}

func (c *Checker) recount() {
	s := c.state
	n := s.GoldenDiceUsed
	for _, r := range s.Rolls {
		if r.Success {
			n++
		}
	}
	for _, r := range s.ExplosionRolls {
		if r.Success {
			n++
		}
	}
	s.SuccessCount = n
}
