package scene

import (
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/dice"
	"github.com/LivingInDrm/sudanlike/internal/effect"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func diceScene(id string, duration int, slots ...Slot) Template {
	return Template{
		ID:       id,
		Name:     id,
		Kind:     KindChallenge,
		Duration: duration,
		Slots:    slots,
		Settlement: &DiceCheckSettlement{
			Check: CheckConfig{Attribute: card.AttrCombat, CalcMode: dice.CalcMax, Target: 8},
			Results: Results{
				Success:         Branch{Narrative: "won", Effects: effect.Effects{Gold: 10}},
				Failure:         Branch{Narrative: "lost"},
				CriticalFailure: Branch{Narrative: "routed"},
			},
		},
	}
}

func character(id string, tags ...string) card.Template {
	return card.Template{
		ID: id, Name: id, Type: card.TypeCharacter, Rarity: card.RarityCopper, Tags: tags,
		Profile: card.CharacterProfile{Attributes: card.AttributeSet{card.AttrCombat: 5}},
	}
}

type fixture struct {
	scenes *Engine
	cards  *card.Engine
	rec    *events.Recorder
}

func newFixture(t *testing.T, tpls ...Template) *fixture {
	bus := events.NewBus()
	rec := &events.Recorder{}
	rec.Attach(bus)
	scenes := NewEngine(bus, zaptest.NewLogger(t))
	require.NoError(t, scenes.RegisterAll(tpls))
	return &fixture{scenes: scenes, cards: card.NewEngine(bus, zaptest.NewLogger(t)), rec: rec}
}

func (f *fixture) add(t *testing.T, tpl card.Template) string {
	inst, err := f.cards.Add(tpl)
	require.NoError(t, err)
	return inst.InstanceID
}

func TestUnlock(t *testing.T) {
	f := newFixture(t, diceScene("duel", 3, Slot{Type: SlotCharacter, Required: true}))

	assert.False(t, f.scenes.Unlock("ghost"))
	assert.True(t, f.scenes.Unlock("duel"))
	assert.False(t, f.scenes.Unlock("duel"))

	s, ok := f.scenes.State("duel")
	require.True(t, ok)
	assert.Equal(t, StatusAvailable, s.Status)
	assert.Equal(t, 3, s.RemainingTurns)
	assert.Equal(t, []SlotState{{Type: SlotCharacter, Required: true, Index: 0}}, s.SlotStates)
	assert.Len(t, f.rec.OfType(events.SceneUnlock), 1)
}

func TestRegisterValidates(t *testing.T) {
	f := newFixture(t)
	bad := []Template{
		{Duration: 1, Settlement: &TradeSettlement{}},
		{ID: "x", Duration: 0, Settlement: &TradeSettlement{}},
		{ID: "x", Duration: 1},
		{ID: "x", Duration: 1, Slots: []Slot{{Type: "pet"}}, Settlement: &TradeSettlement{}},
		{ID: "x", Duration: 1, Settlement: &ChoiceSettlement{}},
		{ID: "x", Duration: 1, Settlement: &DiceCheckSettlement{Check: CheckConfig{Attribute: "luck", CalcMode: dice.CalcMax}}},
		{ID: "x", Duration: 1, Kind: "raid", Settlement: &TradeSettlement{}},
	}
	for i, tpl := range bad {
		assert.ErrorIs(t, f.scenes.Register(tpl), ErrInvalidTemplate, "case %d", i)
	}
}

func TestSlotCompatibility(t *testing.T) {
	cases := []struct {
		slot SlotType
		card card.Type
		want bool
	}{
		{SlotCharacter, card.TypeCharacter, true},
		{SlotCharacter, card.TypeSultan, false},
		{SlotItem, card.TypeEquipment, true},
		{SlotItem, card.TypeConsumable, true},
		{SlotItem, card.TypeIntel, true},
		{SlotItem, card.TypeBook, false},
		{SlotSultan, card.TypeSultan, true},
		{SlotGold, card.TypeGem, true},
		{SlotGold, card.TypeCharacter, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.slot.Accepts(tc.card), "%s/%s", tc.slot, tc.card)
	}
}

func TestPlaceCard(t *testing.T) {
	f := newFixture(t, diceScene("duel", 3,
		Slot{Type: SlotCharacter, Required: true},
		Slot{Type: SlotItem},
	))
	require.True(t, f.scenes.Unlock("duel"))
	hero := f.add(t, character("hero"))
	guard := f.add(t, character("guard"))

	ok, err := f.scenes.PlaceCard("duel", 1, hero, f.cards)
	assert.ErrorIs(t, err, ErrSlotTypeMismatch)
	assert.False(t, ok)

	ok, err = f.scenes.PlaceCard("duel", 0, hero, f.cards)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.scenes.PlaceCard("duel", 0, guard, f.cards)
	require.NoError(t, err)
	assert.False(t, ok, "filled slot")

	for _, call := range []struct {
		scene string
		slot  int
		card  string
	}{{"ghost", 0, guard}, {"duel", 7, guard}, {"duel", -1, guard}, {"duel", 1, "inst_999"}} {
		ok, err = f.scenes.PlaceCard(call.scene, call.slot, call.card, f.cards)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	f.cards.Lock(guard, "elsewhere")
	ok, err = f.scenes.PlaceCard("duel", 1, guard, f.cards)
	assert.ErrorIs(t, err, card.ErrLockedCard)
	assert.False(t, ok)

	id, ok := f.scenes.ClearSlot("duel", 0)
	assert.True(t, ok)
	assert.Equal(t, hero, id)
	_, ok = f.scenes.ClearSlot("duel", 0)
	assert.False(t, ok)
}

func TestCanPlace(t *testing.T) {
	f := newFixture(t, diceScene("duel", 3, Slot{Type: SlotCharacter}, Slot{Type: SlotCharacter}))
	require.True(t, f.scenes.Unlock("duel"))
	hero, _ := f.cards.Add(character("hero"))

	assert.True(t, f.scenes.CanPlace("duel", 0, hero))
	_, err := f.scenes.PlaceCard("duel", 0, hero.InstanceID, f.cards)
	require.NoError(t, err)
	assert.False(t, f.scenes.CanPlace("duel", 0, hero))
	assert.False(t, f.scenes.CanPlace("duel", 1, hero), "already placed in this scene")
	assert.False(t, f.scenes.CanPlace("duel", 1, nil))
}

// TestParticipateRequiresRequiredSlotsOnly verifies participation ignores optional slot occupancy
func TestParticipateRequiresRequiredSlotsOnly(t *testing.T) {
	f := newFixture(t, diceScene("duel", 3,
		Slot{Type: SlotCharacter},
		Slot{Type: SlotCharacter, Required: true},
		Slot{Type: SlotCharacter},
	))
	require.True(t, f.scenes.Unlock("duel"))
	a := f.add(t, character("a"))
	b := f.add(t, character("b"))

	_, err := f.scenes.PlaceCard("duel", 2, a, f.cards)
	require.NoError(t, err)
	assert.False(t, f.scenes.Participate("duel", f.cards))

	_, err = f.scenes.PlaceCard("duel", 1, b, f.cards)
	require.NoError(t, err)
	require.True(t, f.scenes.Participate("duel", f.cards))

	s, _ := f.scenes.State("duel")
	assert.Equal(t, StatusParticipated, s.Status)
	assert.Equal(t, []string{b, a}, s.InvestedCards, "slot order, not placement order")
	assert.False(t, s.SlotStates[0].Locked)
	assert.True(t, s.SlotStates[1].Locked)
	assert.True(t, s.SlotStates[2].Locked)
	assert.True(t, f.cards.IsLocked(a))
	assert.True(t, f.cards.IsLocked(b))
	scene, _ := f.cards.LockedScene(a)
	assert.Equal(t, "duel", scene)

	assert.False(t, f.scenes.Participate("duel", f.cards))
	ok, err := f.scenes.PlaceCard("duel", 0, f.add(t, character("c")), f.cards)
	require.NoError(t, err)
	assert.False(t, ok, "no placement after participation")
}

func TestParticipateWithoutRequiredSlots(t *testing.T) {
	f := newFixture(t, diceScene("stroll", 1, Slot{Type: SlotCharacter}))
	require.True(t, f.scenes.Unlock("stroll"))

	require.True(t, f.scenes.Participate("stroll", f.cards))
	s, _ := f.scenes.State("stroll")
	assert.Equal(t, []string{}, s.InvestedCards)
}

func TestParticipateRejectsLockedOrMissingCards(t *testing.T) {
	f := newFixture(t,
		diceScene("one", 2, Slot{Type: SlotCharacter, Required: true}),
		diceScene("two", 2, Slot{Type: SlotCharacter, Required: true}),
	)
	require.True(t, f.scenes.Unlock("one"))
	require.True(t, f.scenes.Unlock("two"))
	hero := f.add(t, character("hero"))

	_, err := f.scenes.PlaceCard("one", 0, hero, f.cards)
	require.NoError(t, err)
	_, err = f.scenes.PlaceCard("two", 0, hero, f.cards)
	require.NoError(t, err)

	require.True(t, f.scenes.Participate("one", f.cards))
	assert.False(t, f.scenes.Participate("two", f.cards))

	f2 := newFixture(t, diceScene("three", 2, Slot{Type: SlotCharacter, Required: true}))
	require.True(t, f2.scenes.Unlock("three"))
	gone := f2.add(t, character("gone"))
	_, err = f2.scenes.PlaceCard("three", 0, gone, f2.cards)
	require.NoError(t, err)
	_, err = f2.cards.Remove(gone)
	require.NoError(t, err)
	assert.False(t, f2.scenes.Participate("three", f2.cards))
}

func TestTurnCounting(t *testing.T) {
	f := newFixture(t,
		diceScene("played", 2, Slot{Type: SlotCharacter}),
		diceScene("ignored", 1, Slot{Type: SlotCharacter}),
	)
	require.True(t, f.scenes.Unlock("played"))
	require.True(t, f.scenes.Unlock("ignored"))

	assert.Equal(t, -1, f.scenes.DecrementRemainingTurns("ghost"))
	assert.Equal(t, 2, f.scenes.DecrementRemainingTurns("played"), "available scenes do not count down")

	require.True(t, f.scenes.Participate("played", f.cards))
	assert.Equal(t, 1, f.scenes.DecrementRemainingTurns("played"))
	assert.Equal(t, 0, f.scenes.DecrementRemainingTurns("played"))
	assert.Equal(t, 0, f.scenes.DecrementRemainingTurns("played"))
	assert.Equal(t, []string{"played"}, f.scenes.ExpiredScenes())

	assert.Equal(t, 0, f.scenes.AgeAvailable("played"), "participated scenes do not age")
	assert.Equal(t, 0, f.scenes.AgeAvailable("ignored"))
	assert.Equal(t, 0, f.scenes.AgeAvailable("ignored"))
	assert.Equal(t, -1, f.scenes.AgeAvailable("ghost"))
	assert.Equal(t, []string{"ignored"}, f.scenes.AbsentScenes())
}

func TestCompleteReleasesCards(t *testing.T) {
	f := newFixture(t, diceScene("duel", 1, Slot{Type: SlotCharacter, Required: true}))
	require.True(t, f.scenes.Unlock("duel"))
	hero := f.add(t, character("hero"))
	_, err := f.scenes.PlaceCard("duel", 0, hero, f.cards)
	require.NoError(t, err)
	require.True(t, f.scenes.Participate("duel", f.cards))

	assert.True(t, f.scenes.MarkSettling("duel"))
	assert.Equal(t, []string{hero}, f.scenes.Complete("duel", f.cards))

	s, _ := f.scenes.State("duel")
	assert.Equal(t, StatusCompleted, s.Status)
	assert.False(t, s.SlotStates[0].Locked)
	assert.False(t, f.cards.IsLocked(hero))
	assert.Equal(t, []string{"duel"}, f.scenes.CompletedSceneIDs())
	assert.False(t, f.scenes.MarkSettling("duel"))
	assert.False(t, f.scenes.Expire("duel"))
	assert.Empty(t, f.scenes.Complete("ghost", f.cards))
}

func TestExpire(t *testing.T) {
	f := newFixture(t, diceScene("a", 1), diceScene("b", 1))
	require.True(t, f.scenes.Unlock("a"))
	require.True(t, f.scenes.Unlock("b"))
	require.True(t, f.scenes.Participate("b", f.cards))

	assert.True(t, f.scenes.Expire("a"))
	assert.False(t, f.scenes.Expire("a"))
	assert.False(t, f.scenes.Expire("b"))
	assert.Len(t, f.rec.OfType(events.SceneExpire), 1)
	assert.True(t, f.scenes.CompletedSet()["a"])
}

func TestListings(t *testing.T) {
	f := newFixture(t, diceScene("c", 1), diceScene("a", 1), diceScene("b", 1), diceScene("d", 1))
	for _, id := range []string{"c", "a", "b"} {
		require.True(t, f.scenes.Unlock(id))
	}
	require.True(t, f.scenes.Participate("b", f.cards))
	require.True(t, f.scenes.Expire("c"))

	ids := func(states []State) []string {
		var out []string
		for _, s := range states {
			out = append(out, s.SceneID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b"}, ids(f.scenes.ActiveScenes()))
	assert.Equal(t, []string{"a"}, ids(f.scenes.AvailableScenes()))
	assert.Equal(t, []string{"b"}, ids(f.scenes.ParticipatedScenes()))
	assert.Equal(t, []string{"c"}, f.scenes.CompletedSceneIDs())
	assert.Equal(t, []string{"a", "b", "c"}, f.scenes.UnlockedIDs())
	assert.Len(t, f.scenes.Templates(), 4)
	assert.Equal(t, "a", f.scenes.Templates()[0].ID)
}

func intPtr(v int) *int { return &v }

func TestUnlockConditions(t *testing.T) {
	bus := events.NewBus()
	ledger := player.NewLedger(player.DefaultResources(0), bus)
	cards := card.NewEngine(bus, nil)
	_, err := cards.Add(character("mentor", "scholar"))
	require.NoError(t, err)
	f := newFixture(t)

	tpl := diceScene("gate", 1)
	assert.True(t, f.scenes.CheckUnlockConditions(tpl, ledger, cards, nil), "no conditions")

	cases := []struct {
		name string
		cond UnlockConditions
		want bool
	}{
		{"rep min met", UnlockConditions{ReputationMin: intPtr(50)}, true},
		{"rep min unmet", UnlockConditions{ReputationMin: intPtr(51)}, false},
		{"rep max unmet", UnlockConditions{ReputationMax: intPtr(49)}, false},
		{"tag held", UnlockConditions{RequiredTags: []string{"scholar"}}, true},
		{"tag missing", UnlockConditions{RequiredTags: []string{"scholar", "noble"}}, false},
		{"card held", UnlockConditions{RequiredCards: []string{"mentor"}}, true},
		{"card missing", UnlockConditions{RequiredCards: []string{"rival"}}, false},
		{"scene done", UnlockConditions{CompletedScenes: []string{"intro"}}, true},
		{"scene pending", UnlockConditions{CompletedScenes: []string{"intro", "act2"}}, false},
		{"all met", UnlockConditions{
			ReputationMin: intPtr(10), ReputationMax: intPtr(90),
			RequiredTags: []string{"scholar"}, RequiredCards: []string{"mentor"},
			CompletedScenes: []string{"intro"},
		}, true},
	}
	for _, tc := range cases {
		cond := tc.cond
		tpl.UnlockConditions = &cond
		got := f.scenes.CheckUnlockConditions(tpl, ledger, cards, map[string]bool{"intro": true})
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestResultsFallback(t *testing.T) {
	r := Results{
		Success:         Branch{Narrative: "s"},
		Failure:         Branch{Narrative: "f"},
		CriticalFailure: Branch{Narrative: "c"},
	}
	assert.Equal(t, "f", r.For(dice.ResultPartialSuccess).Narrative)
	r.PartialSuccess = &Branch{Narrative: "p"}
	assert.Equal(t, "p", r.For(dice.ResultPartialSuccess).Narrative)
	assert.Equal(t, "s", r.For(dice.ResultSuccess).Narrative)
	assert.Equal(t, "c", r.For(dice.ResultCriticalFailure).Narrative)
	assert.Equal(t, "f", r.For(dice.ResultFailure).Narrative)
}

func TestStatesRestore(t *testing.T) {
	f := newFixture(t, diceScene("duel", 2, Slot{Type: SlotCharacter, Required: true}))
	require.True(t, f.scenes.Unlock("duel"))
	hero := f.add(t, character("hero"))
	_, err := f.scenes.PlaceCard("duel", 0, hero, f.cards)
	require.NoError(t, err)
	require.True(t, f.scenes.Participate("duel", f.cards))

	saved := f.scenes.States()
	f.scenes.Clear()
	assert.False(t, f.scenes.IsUnlocked("duel"))

	require.NoError(t, f.scenes.Restore(saved))
	s, _ := f.scenes.State("duel")
	assert.Equal(t, saved["duel"], s)

	assert.ErrorIs(t, f.scenes.Restore(map[string]State{"ghost": {Status: StatusAvailable}}), ErrUnknownScene)
	assert.ErrorIs(t, f.scenes.Restore(map[string]State{"duel": {Status: "lost"}}), ErrInvalidState)
	assert.ErrorIs(t, f.scenes.Restore(map[string]State{"duel": {Status: StatusAvailable}}), ErrInvalidState)

	f.scenes.Reset()
	assert.Empty(t, f.scenes.Templates())
}
