package card

import (
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type equipFixture struct {
	cards *Engine
	eq    *EquipmentEngine
	rec   *events.Recorder
	hero  *Instance
	ally  *Instance
	sword *Instance
	axe   *Instance
	bow   *Instance
	note  *Instance
}

func newEquipFixture(t *testing.T) *equipFixture {
	t.Helper()
	bus := events.NewBus()
	rec := &events.Recorder{}
	rec.Attach(bus)
	cards := NewEngine(bus, zaptest.NewLogger(t))

	f := &equipFixture{cards: cards, eq: NewEquipmentEngine(cards, bus, zaptest.NewLogger(t)), rec: rec}
	var err error
	f.hero, err = cards.Add(characterTemplate("hero", 4))
	require.NoError(t, err)
	f.ally, err = cards.Add(characterTemplate("ally", 2))
	require.NoError(t, err)
	f.sword, err = cards.Add(equipmentTemplate("sword", 2))
	require.NoError(t, err)
	f.axe, err = cards.Add(equipmentTemplate("axe", 3))
	require.NoError(t, err)
	f.bow, err = cards.Add(equipmentTemplate("bow", 1))
	require.NoError(t, err)
	f.note, err = cards.Add(plainTemplate("note", TypeIntel))
	require.NoError(t, err)
	return f
}

func TestEquipAndBonuses(t *testing.T) {
	f := newEquipFixture(t)

	ok, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.eq.Equip(f.hero.InstanceID, f.axe.InstanceID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 5, f.eq.AttributeBonus(f.hero.InstanceID, AttrCombat))
	assert.Equal(t, 9, f.eq.TotalAttribute(f.hero.InstanceID, AttrCombat))
	assert.Equal(t, 3, f.eq.TotalReroll(f.hero.InstanceID))
	assert.Equal(t, 0, f.eq.TotalSupport(f.hero.InstanceID))
	assert.Equal(t, AttributeSet{AttrCombat: 5}, f.eq.AllAttributeBonuses(f.hero.InstanceID))
	assert.Equal(t, Special{Reroll: 2}, f.eq.SpecialBonuses(f.hero.InstanceID))
	assert.Len(t, f.eq.EquippedCards(f.hero.InstanceID), 2)
	assert.Len(t, f.rec.OfType(events.CardEquip), 2)
}

// TestEquipSameItemTwiceIsSoft verifies the idempotent path returns false without error
func TestEquipSameItemTwiceIsSoft(t *testing.T) {
	f := newEquipFixture(t)
	_, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)
	_, err = f.eq.Equip(f.hero.InstanceID, f.axe.InstanceID)
	require.NoError(t, err)

	ok, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

// TestEquipWithoutFreeSlotRaises verifies a full character rejects a new item
func TestEquipWithoutFreeSlotRaises(t *testing.T) {
	f := newEquipFixture(t)
	_, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)
	_, err = f.eq.Equip(f.hero.InstanceID, f.axe.InstanceID)
	require.NoError(t, err)

	ok, err := f.eq.Equip(f.hero.InstanceID, f.bow.InstanceID)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoSlotsAvailable)
}

func TestEquipTypeAndLockErrors(t *testing.T) {
	f := newEquipFixture(t)

	_, err := f.eq.Equip(f.sword.InstanceID, f.axe.InstanceID)
	assert.ErrorIs(t, err, ErrNotCharacter)

	_, err = f.eq.Equip(f.hero.InstanceID, f.note.InstanceID)
	assert.ErrorIs(t, err, ErrNotEquipment)

	f.cards.Lock(f.sword.InstanceID, "scene")
	_, err = f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	assert.ErrorIs(t, err, ErrLockedCard)

	f.cards.Lock(f.hero.InstanceID, "scene")
	_, err = f.eq.Equip(f.hero.InstanceID, f.axe.InstanceID)
	assert.ErrorIs(t, err, ErrLockedCard)

	ok, err := f.eq.Equip("missing", f.axe.InstanceID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEquipMovesItemBetweenCharacters(t *testing.T) {
	f := newEquipFixture(t)
	_, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)

	ok, err := f.eq.Equip(f.ally.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Empty(t, f.hero.EquippedItems)
	wearer, worn := f.eq.EquippedBy(f.sword.InstanceID)
	require.True(t, worn)
	assert.Equal(t, f.ally.InstanceID, wearer.InstanceID)
}

func TestUnequip(t *testing.T) {
	f := newEquipFixture(t)
	_, _ = f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)

	ok, err := f.eq.Unequip(f.hero.InstanceID, f.axe.InstanceID)
	assert.NoError(t, err)
	assert.False(t, ok)

	f.cards.Lock(f.hero.InstanceID, "scene")
	_, err = f.eq.Unequip(f.hero.InstanceID, f.sword.InstanceID)
	assert.ErrorIs(t, err, ErrLockedCard)
	_, err = f.eq.UnequipAll(f.hero.InstanceID)
	assert.ErrorIs(t, err, ErrLockedCard)
	f.cards.Unlock(f.hero.InstanceID)

	ok, err = f.eq.Unequip(f.hero.InstanceID, f.sword.InstanceID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, f.eq.IsEquipped(f.sword.InstanceID))
}

func TestUnequipAll(t *testing.T) {
	f := newEquipFixture(t)
	_, _ = f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	_, _ = f.eq.Equip(f.hero.InstanceID, f.axe.InstanceID)

	removed, err := f.eq.UnequipAll(f.hero.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.sword.InstanceID, f.axe.InstanceID}, removed)

	removed, err = f.eq.UnequipAll(f.hero.InstanceID)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Len(t, f.rec.OfType(events.CardUnequip), 2)
}

func TestEquipmentQueries(t *testing.T) {
	f := newEquipFixture(t)
	_, _ = f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)

	assert.Len(t, f.eq.ByEquipmentType(EquipWeapon), 3)
	assert.Empty(t, f.eq.ByEquipmentType(EquipMount))

	unequipped := f.eq.Unequipped()
	ids := make([]string, 0, len(unequipped))
	for _, c := range unequipped {
		ids = append(ids, c.InstanceID)
	}
	assert.Equal(t, []string{f.axe.InstanceID, f.bow.InstanceID}, ids)
}

// TestRemovingEquippedItemDetachesIt verifies no dangling equip reference survives removal
func TestRemovingEquippedItemDetachesIt(t *testing.T) {
	f := newEquipFixture(t)
	_, _ = f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)

	ok, err := f.cards.Remove(f.sword.InstanceID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, f.hero.EquippedItems)
	assert.Empty(t, f.eq.EquippedCards(f.hero.InstanceID))
}

func TestRemovingItemOfLockedWearerFails(t *testing.T) {
	f := newEquipFixture(t)
	_, err := f.eq.Equip(f.hero.InstanceID, f.sword.InstanceID)
	require.NoError(t, err)
	require.True(t, f.cards.Lock(f.hero.InstanceID, "duel"))

	ok, err := f.cards.Remove(f.sword.InstanceID)
	assert.ErrorIs(t, err, ErrLockedCard)
	assert.False(t, ok)
	_, held := f.cards.Get(f.sword.InstanceID)
	assert.True(t, held)
	assert.Equal(t, []string{f.sword.InstanceID}, f.hero.EquippedItems)
	assert.Equal(t, 2, f.eq.AttributeBonus(f.hero.InstanceID, AttrCombat))

	f.cards.Unlock(f.hero.InstanceID)
	ok, err = f.cards.Remove(f.sword.InstanceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.hero.EquippedItems)
}
