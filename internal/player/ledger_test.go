package player

import (
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(r Resources) (*Ledger, *events.Recorder) {
	bus := events.NewBus()
	rec := &events.Recorder{}
	rec.Attach(bus)
	return NewLedger(r, bus), rec
}

func deltas(rec *events.Recorder, t events.Type) []int {
	var out []int
	for _, e := range rec.OfType(t) {
		v, _ := e.IntField("amount")
		out = append(out, v)
	}
	return out
}

func TestDefaults(t *testing.T) {
	l, _ := newTestLedger(DefaultResources(30))
	assert.Equal(t, 30, l.Gold())
	assert.Equal(t, 50, l.Reputation())
	assert.Equal(t, 3, l.RewindCharges())
	assert.Equal(t, 3, l.ThinkCharges())
	assert.Equal(t, 0, l.GoldenDice())
	assert.Equal(t, LevelRespected, l.ReputationLevel())
}

// TestGoldNeverNegative verifies clamping and that the published delta is the applied one
func TestGoldNeverNegative(t *testing.T) {
	l, rec := newTestLedger(Resources{Gold: 10})

	assert.Equal(t, 15, l.AddGold(5))
	assert.Equal(t, 0, l.AddGold(-100))
	assert.Equal(t, 0, l.AddGold(-1))

	assert.Equal(t, []int{5, -15}, deltas(rec, events.ResourceGoldChange))
}

func TestRemoveGold(t *testing.T) {
	l, _ := newTestLedger(Resources{Gold: 10})

	ok, err := l.RemoveGold(4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, l.Gold())

	ok, err = l.RemoveGold(7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 6, l.Gold())

	_, err = l.RemoveGold(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestReputationClamped(t *testing.T) {
	l, rec := newTestLedger(Resources{Reputation: 95})

	assert.Equal(t, 100, l.AddReputation(20))
	assert.Equal(t, 100, l.AddReputation(1))
	assert.Equal(t, 0, l.AddReputation(-500))
	l.SetReputation(150)
	assert.Equal(t, 100, l.Reputation())

	assert.Equal(t, []int{5, -100, 100}, deltas(rec, events.ResourceReputationChange))
}

func TestGoldenDiceAndRewind(t *testing.T) {
	l, rec := newTestLedger(Resources{GoldenDice: 2, RewindCharges: 1})

	ok, err := l.UseGoldenDice(3)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = l.UseGoldenDice(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, l.AddGoldenDice(-4))
	_, err = l.UseGoldenDice(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	assert.True(t, l.UseRewind())
	assert.False(t, l.UseRewind())
	assert.Equal(t, 0, l.RewindCharges())
	assert.Equal(t, 2, l.AddRewindCharges(2))

	assert.Equal(t, []int{-2}, deltas(rec, events.ResourceGoldenDiceChange))
	assert.Equal(t, []int{-1, 2}, deltas(rec, events.ResourceRewindChange))
}

func TestThinkCharges(t *testing.T) {
	l, rec := newTestLedger(Resources{ThinkCharges: 1})

	assert.True(t, l.UseThinkCharge())
	assert.False(t, l.UseThinkCharge())

	l.ResetThinkCharges()
	assert.Equal(t, DailyThinkCharges, l.ThinkCharges())
	assert.Len(t, rec.OfType(events.ThinkReset), 1)

	l.SetThinkCharges(-3)
	assert.Equal(t, 0, l.ThinkCharges())
}

func TestReputationLevels(t *testing.T) {
	cases := map[int]ReputationLevel{
		0: LevelHumble, 19: LevelHumble,
		20: LevelCommon, 39: LevelCommon,
		40: LevelRespected, 59: LevelRespected,
		60: LevelProminent, 79: LevelProminent,
		80: LevelLegendary, 100: LevelLegendary,
	}
	for rep, want := range cases {
		assert.Equal(t, want, LevelFor(rep), "reputation %d", rep)
	}
}

func TestDataRestore(t *testing.T) {
	l, rec := newTestLedger(Resources{Gold: 1})
	want := Resources{Gold: 12, Reputation: 70, GoldenDice: 2, RewindCharges: 1, ThinkCharges: 0}

	l.Restore(want)
	assert.Equal(t, want, l.Data())
	assert.Empty(t, rec.Events())

	l.Restore(Resources{Gold: -5, Reputation: 500})
	assert.Equal(t, Resources{Gold: 0, Reputation: 100}, l.Data())
}

func TestNilBus(t *testing.T) {
	l := NewLedger(DefaultResources(5), nil)
	assert.NotPanics(t, func() {
		l.AddGold(3)
		l.ResetThinkCharges()
	})
	assert.Equal(t, 8, l.Gold())
}
