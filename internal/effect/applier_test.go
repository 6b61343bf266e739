package effect

import (
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUnlocker struct {
	unlocked []string
}

func (f *fakeUnlocker) Unlock(id string) bool {
	for _, u := range f.unlocked {
		if u == id {
			return false
		}
	}
	f.unlocked = append(f.unlocked, id)
	return true
}

type catalog map[string]card.Template

func (c catalog) CardTemplate(id string) (card.Template, bool) {
	tpl, ok := c[id]
	return tpl, ok
}

type fixture struct {
	ledger  *player.Ledger
	cards   *card.Engine
	scenes  *fakeUnlocker
	applier *Applier
	rec     *events.Recorder
}

func hero(id string, tags ...string) card.Template {
	return card.Template{
		ID: id, Name: id, Type: card.TypeCharacter, Rarity: card.RaritySilver, Tags: tags,
		Profile: card.CharacterProfile{Attributes: card.AttributeSet{card.AttrCombat: 3}},
	}
}

func newFixture(t *testing.T) *fixture {
	bus := events.NewBus()
	rec := &events.Recorder{}
	rec.Attach(bus)
	ledger := player.NewLedger(player.DefaultResources(10), bus)
	cards := card.NewEngine(bus, zaptest.NewLogger(t))
	scenes := &fakeUnlocker{}
	lookup := catalog{
		"letter": {ID: "letter", Name: "Letter", Type: card.TypeIntel, Rarity: card.RarityStone},
	}
	return &fixture{
		ledger:  ledger,
		cards:   cards,
		scenes:  scenes,
		applier: NewApplier(ledger, cards, scenes, lookup, bus, zaptest.NewLogger(t)),
		rec:     rec,
	}
}

func TestApplyResources(t *testing.T) {
	f := newFixture(t)

	f.applier.Apply(Effects{Gold: -15, Reputation: 60, GoldenDice: 2, RewindCharges: -1}, nil)

	assert.Equal(t, 0, f.ledger.Gold())
	assert.Equal(t, 100, f.ledger.Reputation())
	assert.Equal(t, 2, f.ledger.GoldenDice())
	assert.Equal(t, 2, f.ledger.RewindCharges())

	gold := f.rec.OfType(events.ResourceGoldChange)
	require.Len(t, gold, 1)
	amount, _ := gold[0].IntField("amount")
	assert.Equal(t, -10, amount)
	assert.Len(t, f.rec.OfType(events.EffectsApply), 1)
}

func TestResolveReferences(t *testing.T) {
	f := newFixture(t)
	a, _ := f.cards.Add(hero("knight"))
	b, _ := f.cards.Add(hero("squire"))
	invested := []string{b.InstanceID, a.InstanceID}

	id, ok := f.applier.Resolve("card_invested_0", invested)
	assert.True(t, ok)
	assert.Equal(t, b.InstanceID, id)

	id, ok = f.applier.Resolve("card_invested_1", invested)
	assert.True(t, ok)
	assert.Equal(t, a.InstanceID, id)

	_, ok = f.applier.Resolve("card_invested_2", invested)
	assert.False(t, ok)
	_, ok = f.applier.Resolve("card_invested_0", nil)
	assert.False(t, ok)

	id, ok = f.applier.Resolve("knight", nil)
	assert.True(t, ok)
	assert.Equal(t, a.InstanceID, id)

	id, ok = f.applier.Resolve(b.InstanceID, nil)
	assert.True(t, ok)
	assert.Equal(t, b.InstanceID, id)

	_, ok = f.applier.Resolve("ghost", nil)
	assert.False(t, ok)
}

func TestInvestedIndex(t *testing.T) {
	n, ok := InvestedIndex("card_invested_12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	for _, bad := range []string{"card_invested_", "card_invested_x", "card_invested_-1", "knight"} {
		_, ok := InvestedIndex(bad)
		assert.False(t, ok, bad)
	}
}

// TestBadReferencesAreSwallowed verifies unresolvable or protected references do not abort application
func TestBadReferencesAreSwallowed(t *testing.T) {
	f := newFixture(t)
	p, _ := f.cards.Add(hero("hero", card.ProtagonistTag))

	var out Outcome
	require.NotPanics(t, func() {
		out = f.applier.Apply(Effects{
			Gold:        5,
			CardsAdd:    []string{"missing_template"},
			CardsRemove: []string{"ghost", "card_invested_3", p.InstanceID},
			TagsAdd:     map[string][]string{"ghost": {"x"}},
		}, nil)
	})

	assert.Empty(t, out.Added)
	assert.Empty(t, out.Removed)
	assert.Equal(t, 15, f.ledger.Gold())
	assert.Equal(t, 1, f.cards.Count())
}

func TestCardsAddAndRemove(t *testing.T) {
	f := newFixture(t)
	k, _ := f.cards.Add(hero("knight"))

	out := f.applier.Apply(Effects{
		CardsAdd:    []string{"letter", "letter"},
		CardsRemove: []string{"knight"},
	}, nil)

	assert.Len(t, out.Added, 2)
	assert.Equal(t, []string{k.InstanceID}, out.Removed)
	assert.Len(t, f.cards.ByType(card.TypeIntel), 2)
	assert.False(t, f.cards.HasTemplate("knight"))
}

func TestConsumeInvested(t *testing.T) {
	f := newFixture(t)
	a, _ := f.cards.Add(hero("a"))
	b, _ := f.cards.Add(hero("b", card.ProtagonistTag))
	c, _ := f.cards.Add(hero("c"))

	out := f.applier.Apply(Effects{
		CardsRemove:     []string{"card_invested_2"},
		ConsumeInvested: true,
	}, []string{a.InstanceID, b.InstanceID, c.InstanceID})

	assert.Equal(t, []string{c.InstanceID, a.InstanceID}, out.Removed)
	_, held := f.cards.Get(b.InstanceID)
	assert.True(t, held)
}

func TestLockedCardsAreNotConsumed(t *testing.T) {
	f := newFixture(t)
	a, _ := f.cards.Add(hero("a"))
	f.cards.Lock(a.InstanceID, "scene")

	out := f.applier.Apply(Effects{ConsumeInvested: true}, []string{a.InstanceID})
	assert.Empty(t, out.Removed)
	assert.Equal(t, 1, f.cards.Count())
}

func TestTagsAndUnlocks(t *testing.T) {
	f := newFixture(t)
	a, _ := f.cards.Add(hero("a", "fresh"))

	f.applier.Apply(Effects{
		TagsAdd:      map[string][]string{"card_invested_0": {"veteran", "scarred"}},
		TagsRemove:   map[string][]string{"a": {"fresh"}},
		UnlockScenes: []string{"s2", "s2", "s3"},
	}, []string{a.InstanceID})

	assert.Equal(t, []string{"veteran", "scarred"}, a.CurrentTags)
	assert.Equal(t, []string{"s2", "s3"}, f.scenes.unlocked)
}

func TestEffectsHelpers(t *testing.T) {
	assert.True(t, Effects{}.IsZero())
	assert.False(t, Effects{ConsumeInvested: true}.IsZero())

	fx := Effects{
		CardsRemove: []string{"a"},
		TagsAdd:     map[string][]string{"c": {"x"}, "b": {"y"}},
		TagsRemove:  map[string][]string{"d": {"z"}},
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, fx.References())

	clone := fx.Clone()
	clone.TagsAdd["c"][0] = "changed"
	assert.Equal(t, "x", fx.TagsAdd["c"][0])
}
