package dice

import "github.com/LivingInDrm/sudanlike/internal/card"

// CalcMode selects how invested cards' attribute values combine into a pool.
type CalcMode string

const (
	CalcMax      CalcMode = "max"
	CalcSum      CalcMode = "sum"
	CalcMin      CalcMode = "min"
	CalcAvg      CalcMode = "avg"
	CalcFirst    CalcMode = "first"
	CalcSpecific CalcMode = "specific"
)

// Valid reports whether m is a known mode.
func (m CalcMode) Valid() bool {
	switch m {
	case CalcMax, CalcSum, CalcMin, CalcAvg, CalcFirst, CalcSpecific:
		return true
	}
	return false
}

// CardLookup resolves instance ids. *card.Engine satisfies it.
type CardLookup interface {
	Get(id string) (*card.Instance, bool)
}

// CalculatePool aggregates the raw attribute of cards. The result is
// always in [0, MaxDicePool].
func CalculatePool(cards []*card.Instance, attr card.Attribute, mode CalcMode, slotIndex int) int {
	values := make([]int, len(cards))
	for i, c := range cards {
		values[i] = c.Attribute(attr)
	}
	return AggregatePool(values, mode, slotIndex)
}

// AggregatePool combines values by mode. Specific falls back to the first
// value when slotIndex is out of range; unknown modes behave like max.
func AggregatePool(values []int, mode CalcMode, slotIndex int) int {
	if len(values) == 0 {
		return 0
	}

	var base int
	switch mode {
	case CalcSum:
		for _, v := range values {
			base += v
		}
	case CalcMin:
		base = values[0]
		for _, v := range values[1:] {
			base = min(base, v)
		}
	case CalcAvg:
		sum := 0
		for _, v := range values {
			sum += v
		}
		base = floorDiv(sum, len(values))
	case CalcFirst:
		base = values[0]
	case CalcSpecific:
		if slotIndex >= 0 && slotIndex < len(values) {
			base = values[slotIndex]
		} else {
			base = values[0]
		}
	default:
		base = values[0]
		for _, v := range values[1:] {
			base = max(base, v)
		}
	}
	return min(max(base, 0), MaxDicePool)
}

// TotalReroll is each card's base reroll plus the reroll bonus of every
// item it wears.
func TotalReroll(cards []*card.Instance, lookup CardLookup) int {
	total := 0
	for _, c := range cards {
		total += c.Reroll()
		if lookup == nil {
			continue
		}
		for _, itemID := range c.EquippedItems {
			if item, ok := lookup.Get(itemID); ok {
				total += item.SpecialBonus().Reroll
			}
		}
	}
	return total
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
