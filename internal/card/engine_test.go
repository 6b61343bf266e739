package card

import (
	"errors"
	"fmt"
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func characterTemplate(id string, combat int, tags ...string) Template {
	return Template{
		ID:     id,
		Name:   "Character " + id,
		Type:   TypeCharacter,
		Rarity: RaritySilver,
		Tags:   tags,
		Profile: CharacterProfile{
			Attributes:     AttributeSet{AttrCombat: combat, AttrWisdom: 3},
			Special:        Special{Reroll: 1},
			EquipmentSlots: 2,
		},
	}
}

func equipmentTemplate(id string, bonus int) Template {
	return Template{
		ID:     id,
		Name:   "Item " + id,
		Type:   TypeEquipment,
		Rarity: RarityCopper,
		Profile: EquipmentProfile{
			Subtype:        EquipWeapon,
			AttributeBonus: AttributeSet{AttrCombat: bonus},
			SpecialBonus:   Special{Reroll: 1},
		},
	}
}

func plainTemplate(id string, t Type) Template {
	return Template{ID: id, Name: id, Type: t, Rarity: RarityStone}
}

func newTestEngine(t *testing.T) (*Engine, *events.Recorder) {
	bus := events.NewBus()
	rec := &events.Recorder{}
	rec.Attach(bus)
	return NewEngine(bus, zaptest.NewLogger(t)), rec
}

func TestAddCreatesUniqueInstances(t *testing.T) {
	e, rec := newTestEngine(t)

	a, err := e.Add(characterTemplate("hero", 5))
	require.NoError(t, err)
	b, err := e.Add(characterTemplate("hero", 5))
	require.NoError(t, err)

	assert.NotEqual(t, a.InstanceID, b.InstanceID)
	assert.Equal(t, "hero", a.ID)
	assert.Equal(t, 2, e.Count())
	assert.Len(t, rec.OfType(events.CardAdd), 2)
}

// TestInstanceCopiesTemplate verifies template mutation after creation does not leak
func TestInstanceCopiesTemplate(t *testing.T) {
	e, _ := newTestEngine(t)
	tpl := characterTemplate("hero", 5, "brave")

	inst, err := e.Add(tpl)
	require.NoError(t, err)

	tpl.Tags[0] = "coward"
	tpl.Profile.(CharacterProfile).Attributes[AttrCombat] = 99

	assert.Equal(t, []string{"brave"}, inst.CurrentTags)
	assert.Equal(t, 5, inst.Attribute(AttrCombat))
}

func TestAddRejectsInvalidTemplate(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Add(Template{ID: "x", Type: TypeCharacter})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = e.Add(Template{ID: "y", Type: TypeEquipment, Profile: EquipmentProfile{Subtype: "hat"}})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = e.Add(Template{ID: "z", Type: TypeGem, Profile: CharacterProfile{}})
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestCapacityExceeded(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 0; i < MaxHandSize; i++ {
		_, err := e.Add(plainTemplate(fmt.Sprintf("c%d", i), TypeIntel))
		require.NoError(t, err)
	}
	assert.False(t, e.HasSpace())
	assert.Equal(t, 0, e.AvailableSpace())

	_, err := e.Add(plainTemplate("overflow", TypeIntel))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, MaxHandSize, e.Count())
}

// TestRemovePolicies verifies protagonist and locked cards raise while unknown ids do not
func TestRemovePolicies(t *testing.T) {
	e, rec := newTestEngine(t)

	hero, err := e.Add(characterTemplate("hero", 5, ProtagonistTag))
	require.NoError(t, err)
	ally, err := e.Add(characterTemplate("ally", 3))
	require.NoError(t, err)
	spare, err := e.Add(plainTemplate("note", TypeIntel))
	require.NoError(t, err)

	ok, err := e.Remove(hero.InstanceID)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrProtectedCard))

	require.True(t, e.Lock(ally.InstanceID, "scene_a"))
	ok, err = e.Remove(ally.InstanceID)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLockedCard)

	ok, err = e.Remove("inst_missing")
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = e.Remove(spare.InstanceID)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Len(t, rec.OfType(events.CardRemove), 1)
	assert.Equal(t, 2, e.Count())
}

func TestIDsNeverReused(t *testing.T) {
	e, _ := newTestEngine(t)
	a, err := e.Add(plainTemplate("a", TypeBook))
	require.NoError(t, err)
	_, err = e.Remove(a.InstanceID)
	require.NoError(t, err)

	b, err := e.Add(plainTemplate("a", TypeBook))
	require.NoError(t, err)
	assert.NotEqual(t, a.InstanceID, b.InstanceID)
}

func TestLockUnlockSoftOutcomes(t *testing.T) {
	e, rec := newTestEngine(t)
	c, err := e.Add(characterTemplate("hero", 5))
	require.NoError(t, err)

	assert.True(t, e.Lock(c.InstanceID, "s1"))
	assert.False(t, e.Lock(c.InstanceID, "s2"))
	assert.False(t, e.Lock("unknown", "s1"))

	scene, ok := e.LockedScene(c.InstanceID)
	assert.True(t, ok)
	assert.Equal(t, "s1", scene)
	assert.Equal(t, map[string][]string{"s1": {c.InstanceID}}, e.LockedInScenes())
	assert.Len(t, e.Locked(), 1)
	assert.Empty(t, e.Available())

	assert.True(t, e.Unlock(c.InstanceID))
	assert.False(t, e.Unlock(c.InstanceID))
	assert.False(t, e.IsLocked(c.InstanceID))
	assert.Len(t, rec.OfType(events.CardLock), 1)
	assert.Len(t, rec.OfType(events.CardUnlock), 1)
}

func TestUnlockAll(t *testing.T) {
	e, _ := newTestEngine(t)
	a, _ := e.Add(plainTemplate("a", TypeBook))
	b, _ := e.Add(plainTemplate("b", TypeBook))
	e.Lock(a.InstanceID, "s")
	e.Lock(b.InstanceID, "t")

	assert.Equal(t, 2, e.UnlockAll())
	assert.Empty(t, e.Locked())
}

func TestTags(t *testing.T) {
	e, rec := newTestEngine(t)
	c, _ := e.Add(characterTemplate("hero", 5, "noble"))

	assert.False(t, e.AddTag(c.InstanceID, "noble"))
	assert.True(t, e.AddTag(c.InstanceID, "wounded"))
	assert.True(t, e.HasCardWithTag("wounded"))
	assert.Len(t, e.ByTag("wounded"), 1)

	assert.True(t, e.RemoveTag(c.InstanceID, "noble"))
	assert.False(t, e.RemoveTag(c.InstanceID, "noble"))
	assert.False(t, e.AddTag("missing", "x"))
	assert.Equal(t, []string{"wounded"}, c.CurrentTags)

	assert.Len(t, rec.OfType(events.CardTagAdd), 1)
	assert.Len(t, rec.OfType(events.CardTagRemove), 1)
}

func TestQueries(t *testing.T) {
	e, _ := newTestEngine(t)
	_, _ = e.Add(plainTemplate("gem", TypeGem))
	hero, _ := e.Add(characterTemplate("hero", 5, ProtagonistTag))
	first, _ := e.Add(equipmentTemplate("sword", 2))
	_, _ = e.Add(equipmentTemplate("sword", 2))
	_, _ = e.Add(plainTemplate("sultan", TypeSultan))

	got, ok := e.GetByTemplateID("sword")
	require.True(t, ok)
	assert.Equal(t, first.InstanceID, got.InstanceID)
	assert.True(t, e.HasTemplate("gem"))
	assert.False(t, e.HasTemplate("axe"))

	p, ok := e.Protagonist()
	require.True(t, ok)
	assert.Equal(t, hero.InstanceID, p.InstanceID)

	assert.Len(t, e.Characters(), 1)
	assert.Len(t, e.Equipment(), 2)
	assert.Len(t, e.Sultans(), 1)
	assert.Len(t, e.ByType(TypeGem), 1)
	assert.Len(t, e.All(), 5)
	assert.Len(t, e.IDs(), 5)
}

func TestInstanceEquipHelpers(t *testing.T) {
	e, _ := newTestEngine(t)
	hero, _ := e.Add(characterTemplate("hero", 5))
	item, _ := e.Add(equipmentTemplate("sword", 2))
	note, _ := e.Add(plainTemplate("note", TypeIntel))

	assert.True(t, hero.CanEquip())
	assert.False(t, item.CanEquip())
	assert.False(t, note.CanEquip())
	assert.Equal(t, 2, hero.AvailableEquipmentSlots())
	assert.Equal(t, 2, item.AttributeBonus(AttrCombat))
	assert.Equal(t, 0, note.Attribute(AttrCombat))
	assert.Equal(t, 8, hero.AttributeTotal())
	assert.Equal(t, EquipWeapon, item.Subtype())
}

// TestStateRestore verifies the hand survives a snapshot round trip including
// locks, equip lists and the id sequence
func TestStateRestore(t *testing.T) {
	e, _ := newTestEngine(t)
	eq := NewEquipmentEngine(e, nil, nil)

	hero, _ := e.Add(characterTemplate("hero", 5, ProtagonistTag))
	sword, _ := e.Add(equipmentTemplate("sword", 2))
	gone, _ := e.Add(plainTemplate("gone", TypeBook))
	_, err := eq.Equip(hero.InstanceID, sword.InstanceID)
	require.NoError(t, err)
	e.AddTag(hero.InstanceID, "scarred")
	e.Lock(hero.InstanceID, "duel")
	_, _ = e.Remove(gone.InstanceID)

	state := e.State()

	restored, _ := newTestEngine(t)
	require.NoError(t, restored.Restore(state))

	assert.Equal(t, e.IDs(), restored.IDs())
	got, ok := restored.Get(hero.InstanceID)
	require.True(t, ok)
	assert.Equal(t, []string{sword.InstanceID}, got.EquippedItems)
	assert.True(t, got.HasTag("scarred"))
	assert.True(t, restored.IsLocked(hero.InstanceID))

	next, err := restored.Add(plainTemplate("new", TypeBook))
	require.NoError(t, err)
	assert.Equal(t, "inst_4", next.InstanceID)
}

func TestRestoreRejectsDuplicates(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := TemplateRecord(plainTemplate("a", TypeBook))
	rec.InstanceID = "inst_1"

	err := e.Restore(State{Cards: []Record{rec, rec}})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRestoreDropsDanglingEquipReferences(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := TemplateRecord(characterTemplate("hero", 5))
	rec.InstanceID = "inst_7"
	rec.EquippedItems = []string{"inst_99"}

	require.NoError(t, e.Restore(State{Cards: []Record{rec}, Locked: map[string]string{"inst_404": "s"}}))
	hero, ok := e.Get("inst_7")
	require.True(t, ok)
	assert.Empty(t, hero.EquippedItems)
	assert.Empty(t, e.Locked())

	next, err := e.Add(plainTemplate("x", TypeBook))
	require.NoError(t, err)
	assert.Equal(t, "inst_8", next.InstanceID)
}

func TestRecordRoundTripKeepsProfiles(t *testing.T) {
	for _, tpl := range []Template{
		characterTemplate("hero", 5, "a"),
		equipmentTemplate("sword", 3),
		{ID: "ruby", Name: "Ruby", Type: TypeGem, Rarity: RarityGold, Profile: PlainProfile{GemSlots: 1}},
	} {
		back, err := TemplateRecord(tpl).Template()
		require.NoError(t, err, tpl.ID)
		assert.Equal(t, tpl, back, tpl.ID)
	}
}
