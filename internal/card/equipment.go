package card

import (
	"fmt"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"go.uber.org/zap"
)

// EquipmentEngine manages which equipment cards characters wear and
// aggregates the bonuses they grant. It stores nothing itself; the equip
// relation lives on the character instances owned by Engine.
type EquipmentEngine struct {
	cards  *Engine
	bus    *events.Bus
	logger *zap.Logger
}

// NewEquipmentEngine binds equipment rules to a hand.
func NewEquipmentEngine(cards *Engine, bus *events.Bus, logger *zap.Logger) *EquipmentEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentEngine{cards: cards, bus: bus, logger: logger}
}

// Equip puts itemID on characterID. Unknown ids and an item already worn by
// the same character return false. An item worn by another character is
// moved.
func (q *EquipmentEngine) Equip(characterID, itemID string) (bool, error) {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return false, nil
	}
	item, ok := q.cards.Get(itemID)
	if !ok {
		return false, nil
	}

	if !character.IsCharacter() {
		return false, fmt.Errorf("%w: %s", ErrNotCharacter, characterID)
	}
	if !item.IsEquipment() {
		return false, fmt.Errorf("%w: %s", ErrNotEquipment, itemID)
	}
	if q.cards.IsLocked(characterID) || q.cards.IsLocked(itemID) {
		return false, fmt.Errorf("%w: cannot equip %s on %s", ErrLockedCard, itemID, characterID)
	}
	if character.IsEquipped(itemID) {
		return false, nil
	}
	if !character.CanEquipMore() {
		return false, fmt.Errorf("%w: %s wears %d of %d", ErrNoSlotsAvailable,
			characterID, len(character.EquippedItems), character.EquipmentSlots())
	}

	if wearer, worn := q.EquippedBy(itemID); worn {
		if q.cards.IsLocked(wearer.InstanceID) {
			return false, fmt.Errorf("%w: %s is worn by invested %s", ErrLockedCard, itemID, wearer.InstanceID)
		}
		wearer.detach(itemID)
		q.bus.Publish(events.CardUnequip, map[string]any{"characterId": wearer.InstanceID, "equipmentId": itemID})
	}

	character.EquippedItems = append(character.EquippedItems, itemID)
	q.logger.Debug("equipped",
		zap.String("character_id", characterID),
		zap.String("item_id", itemID),
	)
	q.bus.Publish(events.CardEquip, map[string]any{"characterId": characterID, "equipmentId": itemID})
	return true, nil
}

// Unequip removes itemID from characterID.
func (q *EquipmentEngine) Unequip(characterID, itemID string) (bool, error) {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return false, nil
	}
	if q.cards.IsLocked(characterID) {
		return false, fmt.Errorf("%w: cannot unequip from %s", ErrLockedCard, characterID)
	}
	if !character.detach(itemID) {
		return false, nil
	}
	q.bus.Publish(events.CardUnequip, map[string]any{"characterId": characterID, "equipmentId": itemID})
	return true, nil
}

// UnequipAll strips a character and returns the removed item ids.
func (q *EquipmentEngine) UnequipAll(characterID string) ([]string, error) {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return []string{}, nil
	}
	if q.cards.IsLocked(characterID) {
		return nil, fmt.Errorf("%w: cannot unequip from %s", ErrLockedCard, characterID)
	}

	removed := character.EquippedItems
	character.EquippedItems = nil
	for _, itemID := range removed {
		q.bus.Publish(events.CardUnequip, map[string]any{"characterId": characterID, "equipmentId": itemID})
	}
	if removed == nil {
		removed = []string{}
	}
	return removed, nil
}

// EquippedCards resolves the items a character wears.
func (q *EquipmentEngine) EquippedCards(characterID string) []*Instance {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return nil
	}
	out := make([]*Instance, 0, len(character.EquippedItems))
	for _, id := range character.EquippedItems {
		if item, ok := q.cards.Get(id); ok {
			out = append(out, item)
		}
	}
	return out
}

// AttributeBonus sums one attribute bonus over worn items.
func (q *EquipmentEngine) AttributeBonus(characterID string, attr Attribute) int {
	total := 0
	for _, item := range q.EquippedCards(characterID) {
		total += item.AttributeBonus(attr)
	}
	return total
}

// AllAttributeBonuses sums every attribute bonus over worn items.
func (q *EquipmentEngine) AllAttributeBonuses(characterID string) AttributeSet {
	out := make(AttributeSet)
	for _, item := range q.EquippedCards(characterID) {
		p, ok := item.Equipment()
		if !ok {
			continue
		}
		for attr, v := range p.AttributeBonus {
			out[attr] += v
		}
	}
	return out
}

// SpecialBonuses sums special bonuses over worn items.
func (q *EquipmentEngine) SpecialBonuses(characterID string) Special {
	var total Special
	for _, item := range q.EquippedCards(characterID) {
		total = total.Add(item.SpecialBonus())
	}
	return total
}

// TotalAttribute is the base attribute plus equipment bonuses.
func (q *EquipmentEngine) TotalAttribute(characterID string, attr Attribute) int {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return 0
	}
	return character.Attribute(attr) + q.AttributeBonus(characterID, attr)
}

// TotalReroll is the base reroll plus equipment reroll bonuses.
func (q *EquipmentEngine) TotalReroll(characterID string) int {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return 0
	}
	return character.Reroll() + q.SpecialBonuses(characterID).Reroll
}

// TotalSupport is the base support plus equipment support bonuses.
func (q *EquipmentEngine) TotalSupport(characterID string) int {
	character, ok := q.cards.Get(characterID)
	if !ok {
		return 0
	}
	return character.Support() + q.SpecialBonuses(characterID).Support
}

// ByEquipmentType returns held equipment of one subtype.
func (q *EquipmentEngine) ByEquipmentType(subtype EquipmentType) []*Instance {
	return q.cards.filter(func(c *Instance) bool {
		return c.IsEquipment() && c.Subtype() == subtype
	})
}

// Unequipped returns equipment nobody wears.
func (q *EquipmentEngine) Unequipped() []*Instance {
	return q.cards.filter(func(c *Instance) bool {
		return c.IsEquipment() && !q.IsEquipped(c.InstanceID)
	})
}

// IsEquipped reports whether any character wears itemID.
func (q *EquipmentEngine) IsEquipped(itemID string) bool {
	_, ok := q.EquippedBy(itemID)
	return ok
}

// EquippedBy returns the character wearing itemID.
func (q *EquipmentEngine) EquippedBy(itemID string) (*Instance, bool) {
	for _, character := range q.cards.Characters() {
		if character.IsEquipped(itemID) {
			return character, true
		}
	}
	return nil, false
}
