package dice

import (
	"testing"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatePool(t *testing.T) {
	values := []int{4, 7, 2}
	cases := []struct {
		mode CalcMode
		slot int
		want int
	}{
		{CalcMax, 0, 7},
		{CalcSum, 0, 13},
		{CalcMin, 0, 2},
		{CalcAvg, 0, 4},
		{CalcFirst, 0, 4},
		{CalcSpecific, 1, 7},
		{CalcSpecific, 9, 4},
		{CalcSpecific, -1, 4},
		{CalcMode("bogus"), 0, 7},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AggregatePool(values, tc.mode, tc.slot), "%s/%d", tc.mode, tc.slot)
	}
}

func TestAggregatePoolClamps(t *testing.T) {
	assert.Equal(t, 0, AggregatePool(nil, CalcSum, 0))
	assert.Equal(t, MaxDicePool, AggregatePool([]int{15, 15}, CalcSum, 0))
	assert.Equal(t, 0, AggregatePool([]int{-4, 1}, CalcMin, 0))
	assert.Equal(t, 0, AggregatePool([]int{-3, 0}, CalcAvg, 0))
}

func TestCalcModeValid(t *testing.T) {
	assert.True(t, CalcSpecific.Valid())
	assert.False(t, CalcMode("median").Valid())
}

type lookup map[string]*card.Instance

func (l lookup) Get(id string) (*card.Instance, bool) {
	c, ok := l[id]
	return c, ok
}

func TestCalculatePoolAndReroll(t *testing.T) {
	engine := card.NewEngine(nil, nil)
	knight, err := engine.Add(card.Template{
		ID: "knight", Name: "Knight", Type: card.TypeCharacter, Rarity: card.RarityGold,
		Profile: card.CharacterProfile{
			Attributes:     card.AttributeSet{card.AttrCombat: 6},
			Special:        card.Special{Reroll: 1},
			EquipmentSlots: 2,
		},
	})
	require.NoError(t, err)
	scholar, err := engine.Add(card.Template{
		ID: "scholar", Name: "Scholar", Type: card.TypeCharacter, Rarity: card.RaritySilver,
		Profile: card.CharacterProfile{
			Attributes: card.AttributeSet{card.AttrCombat: 2, card.AttrWisdom: 8},
		},
	})
	require.NoError(t, err)
	charm, err := engine.Add(card.Template{
		ID: "charm", Name: "Charm", Type: card.TypeEquipment, Rarity: card.RarityCopper,
		Profile: card.EquipmentProfile{
			Subtype:      card.EquipAccessory,
			SpecialBonus: card.Special{Reroll: 2},
		},
	})
	require.NoError(t, err)

	equipment := card.NewEquipmentEngine(engine, nil, nil)
	ok, err := equipment.Equip(knight.InstanceID, charm.InstanceID)
	require.NoError(t, err)
	require.True(t, ok)

	cards := []*card.Instance{knight, scholar}
	assert.Equal(t, 8, CalculatePool(cards, card.AttrCombat, CalcSum, 0))
	assert.Equal(t, 8, CalculatePool(cards, card.AttrWisdom, CalcMax, 0))
	assert.Equal(t, 2, CalculatePool(cards, card.AttrCombat, CalcSpecific, 1))

	assert.Equal(t, 3, TotalReroll(cards, engine))
	assert.Equal(t, 1, TotalReroll(cards, nil))
	assert.Equal(t, 1, TotalReroll(cards, lookup{}))
}
