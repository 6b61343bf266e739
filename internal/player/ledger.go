// Package player holds the resource ledger of the single player.
package player

import (
	"errors"
	"fmt"

	"github.com/LivingInDrm/sudanlike/internal/events"
)

const (
	ReputationMin        = 0
	ReputationMax        = 100
	InitialReputation    = 50
	InitialRewindCharges = 3
	DailyThinkCharges    = 3
)

// ErrNegativeAmount is returned when a spend is asked to move a negative amount.
var ErrNegativeAmount = errors.New("amount must not be negative")

// ReputationLevel buckets reputation into named tiers.
type ReputationLevel string

const (
	LevelHumble    ReputationLevel = "humble"
	LevelCommon    ReputationLevel = "common"
	LevelRespected ReputationLevel = "respected"
	LevelProminent ReputationLevel = "prominent"
	LevelLegendary ReputationLevel = "legendary"
)

// Resources is the plain data form of a ledger.
type Resources struct {
	Gold          int `json:"gold"`
	Reputation    int `json:"reputation"`
	GoldenDice    int `json:"golden_dice"`
	RewindCharges int `json:"rewind_charges"`
	ThinkCharges  int `json:"think_charges"`
}

// DefaultResources returns the starting values used when a field is not
// chosen by the difficulty.
func DefaultResources(gold int) Resources {
	return Resources{
		Gold:          gold,
		Reputation:    InitialReputation,
		RewindCharges: InitialRewindCharges,
		ThinkCharges:  DailyThinkCharges,
	}
}

// Ledger is the player's mutable resources. Every add operation clamps and
// publishes the delta actually applied.
type Ledger struct {
	gold          int
	reputation    int
	goldenDice    int
	rewindCharges int
	thinkCharges  int
	bus           *events.Bus
}

// NewLedger creates a ledger from initial values; out-of-range values are clamped.
func NewLedger(initial Resources, bus *events.Bus) *Ledger {
	l := &Ledger{bus: bus}
	l.load(initial)
	return l
}

func (l *Ledger) load(r Resources) {
	l.gold = max(0, r.Gold)
	l.reputation = clampReputation(r.Reputation)
	l.goldenDice = max(0, r.GoldenDice)
	l.rewindCharges = max(0, r.RewindCharges)
	l.thinkCharges = max(0, r.ThinkCharges)
}

func (l *Ledger) Gold() int          { return l.gold }
func (l *Ledger) Reputation() int    { return l.reputation }
func (l *Ledger) GoldenDice() int    { return l.goldenDice }
func (l *Ledger) RewindCharges() int { return l.rewindCharges }
func (l *Ledger) ThinkCharges() int  { return l.thinkCharges }

// AddGold applies a delta, flooring at zero, and returns the new total.
func (l *Ledger) AddGold(amount int) int {
	l.gold = l.apply(events.ResourceGoldChange, l.gold, max(0, l.gold+amount))
	return l.gold
}

// RemoveGold spends gold if enough is held.
func (l *Ledger) RemoveGold(amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("%w: remove gold %d", ErrNegativeAmount, amount)
	}
	if l.gold < amount {
		return false, nil
	}
	l.AddGold(-amount)
	return true, nil
}

// SetGold overwrites gold, flooring at zero.
func (l *Ledger) SetGold(value int) {
	l.gold = l.apply(events.ResourceGoldChange, l.gold, max(0, value))
}

// AddReputation applies a delta clamped to [0,100].
func (l *Ledger) AddReputation(amount int) int {
	l.reputation = l.apply(events.ResourceReputationChange, l.reputation, clampReputation(l.reputation+amount))
	return l.reputation
}

// SetReputation overwrites reputation, clamped to [0,100].
func (l *Ledger) SetReputation(value int) {
	l.reputation = l.apply(events.ResourceReputationChange, l.reputation, clampReputation(value))
}

// AddGoldenDice applies a delta, flooring at zero.
func (l *Ledger) AddGoldenDice(amount int) int {
	l.goldenDice = l.apply(events.ResourceGoldenDiceChange, l.goldenDice, max(0, l.goldenDice+amount))
	return l.goldenDice
}

// UseGoldenDice spends count golden dice if enough are held.
func (l *Ledger) UseGoldenDice(count int) (bool, error) {
	if count < 0 {
		return false, fmt.Errorf("%w: use golden dice %d", ErrNegativeAmount, count)
	}
	if l.goldenDice < count {
		return false, nil
	}
	l.AddGoldenDice(-count)
	return true, nil
}

// AddRewindCharges applies a delta, flooring at zero.
func (l *Ledger) AddRewindCharges(amount int) int {
	l.rewindCharges = l.apply(events.ResourceRewindChange, l.rewindCharges, max(0, l.rewindCharges+amount))
	return l.rewindCharges
}

// UseRewind spends one rewind charge.
func (l *Ledger) UseRewind() bool {
	if l.rewindCharges <= 0 {
		return false
	}
	l.AddRewindCharges(-1)
	return true
}

// UseThinkCharge spends one think charge.
func (l *Ledger) UseThinkCharge() bool {
	if l.thinkCharges <= 0 {
		return false
	}
	l.thinkCharges--
	return true
}

// ResetThinkCharges restores the daily think allotment.
func (l *Ledger) ResetThinkCharges() {
	l.thinkCharges = DailyThinkCharges
	l.bus.Publish(events.ThinkReset, map[string]any{"charges": l.thinkCharges})
}

// SetThinkCharges overwrites think charges, flooring at zero.
func (l *Ledger) SetThinkCharges(value int) {
	l.thinkCharges = max(0, value)
}

// ReputationLevel returns the tier for the current reputation.
func (l *Ledger) ReputationLevel() ReputationLevel {
	return LevelFor(l.reputation)
}

// LevelFor maps a reputation value to its tier.
func LevelFor(reputation int) ReputationLevel {
	switch {
	case reputation < 20:
		return LevelHumble
	case reputation < 40:
		return LevelCommon
	case reputation < 60:
		return LevelRespected
	case reputation < 80:
		return LevelProminent
	default:
		return LevelLegendary
	}
}

// Data returns the plain values.
func (l *Ledger) Data() Resources {
	return Resources{
		Gold:          l.gold,
		Reputation:    l.reputation,
		GoldenDice:    l.goldenDice,
		RewindCharges: l.rewindCharges,
		ThinkCharges:  l.thinkCharges,
	}
}

// Restore overwrites every value without publishing changes.
func (l *Ledger) Restore(r Resources) {
	l.load(r)
}

func (l *Ledger) apply(eventType events.Type, before, after int) int {
	if delta := after - before; delta != 0 {
		l.bus.Publish(eventType, map[string]any{"amount": delta, "newTotal": after})
	}
	return after
}

func clampReputation(v int) int {
	return min(ReputationMax, max(ReputationMin, v))
}
