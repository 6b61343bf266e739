package game

import (
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/player"
)

// Thinker spends the daily think charges, at most once per card per day.
type Thinker struct {
	ledger *player.Ledger
	cards  *card.Engine
	used   map[string]bool
	bus    *events.Bus
}

// NewThinker binds think rules to a ledger and hand.
func NewThinker(ledger *player.Ledger, cards *card.Engine, bus *events.Bus) *Thinker {
	return &Thinker{ledger: ledger, cards: cards, used: make(map[string]bool), bus: bus}
}

// CanUse reports whether id can be thought about now: a charge remains, the
// card is held and unlocked, and it was not used today.
func (t *Thinker) CanUse(id string) bool {
	if t.ledger.ThinkCharges() <= 0 || t.used[id] {
		return false
	}
	if _, ok := t.cards.Get(id); !ok {
		return false
	}
	return !t.cards.IsLocked(id)
}

// Use spends a charge on id.
func (t *Thinker) Use(id string) bool {
	if !t.CanUse(id) || !t.ledger.UseThinkCharge() {
		return false
	}
	t.used[id] = true
	t.bus.Publish(events.ThinkUse, map[string]any{"cardId": id, "remaining": t.ledger.ThinkCharges()})
	return true
}

// ResetDaily clears today's usage and restores the charges.
func (t *Thinker) ResetDaily() {
	clear(t.used)
	t.ledger.ResetThinkCharges()
}

func (t *Thinker) IsUsedToday(id string) bool { return t.used[id] }

// UsedToday lists today's cards in id order.
func (t *Thinker) UsedToday() []string {
	out := make([]string, 0, len(t.used))
	for id := range t.used {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// RestoreUsedToday replaces today's usage.
func (t *Thinker) RestoreUsedToday(ids []string) {
	clear(t.used)
	for _, id := range ids {
		t.used[id] = true
	}
}
