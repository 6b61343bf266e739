// Package effect interprets declarative effect deltas against the player's
// resources, the hand and the scene registry.
package effect

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// InvestedPrefix introduces a positional reference to the Nth invested card
// (zero based) of the settlement being applied, e.g. card_invested_0.
const InvestedPrefix = "card_invested_"

// Effects is a declarative delta. Zero values are no-ops.
type Effects struct {
	Gold            int                 `json:"gold,omitempty" yaml:"gold,omitempty"`
	Reputation      int                 `json:"reputation,omitempty" yaml:"reputation,omitempty"`
	GoldenDice      int                 `json:"golden_dice,omitempty" yaml:"golden_dice,omitempty"`
	RewindCharges   int                 `json:"rewind_charges,omitempty" yaml:"rewind_charges,omitempty"`
	CardsAdd        []string            `json:"cards_add,omitempty" yaml:"cards_add,omitempty"`
	CardsRemove     []string            `json:"cards_remove,omitempty" yaml:"cards_remove,omitempty"`
	TagsAdd         map[string][]string `json:"tags_add,omitempty" yaml:"tags_add,omitempty"`
	TagsRemove      map[string][]string `json:"tags_remove,omitempty" yaml:"tags_remove,omitempty"`
	UnlockScenes    []string            `json:"unlock_scenes,omitempty" yaml:"unlock_scenes,omitempty"`
	ConsumeInvested bool                `json:"consume_invested,omitempty" yaml:"consume_invested,omitempty"`
}

// IsZero reports whether applying e would change nothing.
func (e Effects) IsZero() bool {
	return e.Gold == 0 && e.Reputation == 0 && e.GoldenDice == 0 && e.RewindCharges == 0 &&
		len(e.CardsAdd) == 0 && len(e.CardsRemove) == 0 &&
		len(e.TagsAdd) == 0 && len(e.TagsRemove) == 0 &&
		len(e.UnlockScenes) == 0 && !e.ConsumeInvested
}

// Clone returns a deep copy.
func (e Effects) Clone() Effects {
	e.CardsAdd = slices.Clone(e.CardsAdd)
	e.CardsRemove = slices.Clone(e.CardsRemove)
	e.TagsAdd = cloneTagMap(e.TagsAdd)
	e.TagsRemove = cloneTagMap(e.TagsRemove)
	e.UnlockScenes = slices.Clone(e.UnlockScenes)
	return e
}

// References lists every card reference the effects mention, for content
// validation.
func (e Effects) References() []string {
	refs := slices.Clone(e.CardsRemove)
	refs = append(refs, slices.Sorted(maps.Keys(e.TagsAdd))...)
	refs = append(refs, slices.Sorted(maps.Keys(e.TagsRemove))...)
	return refs
}

func cloneTagMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// InvestedIndex parses a positional reference.
func InvestedIndex(ref string) (int, bool) {
	rest, ok := strings.CutPrefix(ref, InvestedPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
