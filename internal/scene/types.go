// Package scene holds scene templates, the per-scene runtime state machine
// and the slot rules that decide which cards a scene accepts.
package scene

import (
	"fmt"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/dice"
	"github.com/LivingInDrm/sudanlike/internal/effect"
)

// SlotType constrains which card types a slot accepts.
type SlotType string

const (
	SlotCharacter SlotType = "character"
	SlotItem      SlotType = "item"
	SlotSultan    SlotType = "sultan"
	SlotGold      SlotType = "gold"
)

// Valid reports whether t is a known slot type.
func (t SlotType) Valid() bool {
	switch t {
	case SlotCharacter, SlotItem, SlotSultan, SlotGold:
		return true
	}
	return false
}

// Accepts reports whether a card of type ct fits a slot of type t.
func (t SlotType) Accepts(ct card.Type) bool {
	switch t {
	case SlotCharacter:
		return ct == card.TypeCharacter
	case SlotItem:
		return ct == card.TypeEquipment || ct == card.TypeConsumable || ct == card.TypeIntel
	case SlotSultan:
		return ct == card.TypeSultan
	case SlotGold:
		return ct == card.TypeGem
	}
	return false
}

// Slot is a slot definition on a template.
type Slot struct {
	Type     SlotType `json:"type" yaml:"type"`
	Required bool     `json:"required" yaml:"required"`
}

// SlotState is a slot at runtime.
type SlotState struct {
	Type           SlotType `json:"type"`
	Required       bool     `json:"required"`
	Index          int      `json:"slot_index"`
	InvestedCardID string   `json:"invested_card_id,omitempty"`
	Locked         bool     `json:"locked"`
}

// Filled reports whether a card sits in the slot.
func (s SlotState) Filled() bool { return s.InvestedCardID != "" }

// Status is the runtime status of an unlocked scene. A scene without
// runtime state is locked; that is never stored.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusParticipated Status = "participated"
	StatusSettling     Status = "settling"
	StatusCompleted    Status = "completed"
)

// Valid reports whether s is a storable status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusParticipated, StatusSettling, StatusCompleted:
		return true
	}
	return false
}

// Kind classifies scenes for presentation.
type Kind string

const (
	KindEvent     Kind = "event"
	KindShop      Kind = "shop"
	KindChallenge Kind = "challenge"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindShop, KindChallenge:
		return true
	}
	return false
}

// UnlockConditions are AND-combined; a nil bound or empty list is satisfied.
type UnlockConditions struct {
	ReputationMin   *int     `json:"reputation_min,omitempty" yaml:"reputation_min,omitempty"`
	ReputationMax   *int     `json:"reputation_max,omitempty" yaml:"reputation_max,omitempty"`
	RequiredTags    []string `json:"required_tags,omitempty" yaml:"required_tags,omitempty"`
	RequiredCards   []string `json:"required_cards,omitempty" yaml:"required_cards,omitempty"`
	CompletedScenes []string `json:"completed_scenes,omitempty" yaml:"completed_scenes,omitempty"`
}

// AbsencePenalty applies when a scene runs out of turns unplayed.
type AbsencePenalty struct {
	Narrative string         `json:"narrative" yaml:"narrative"`
	Effects   effect.Effects `json:"effects" yaml:"effects"`
}

// SettlementKind tags a Settlement.
type SettlementKind string

const (
	SettlementDiceCheck SettlementKind = "dice_check"
	SettlementTrade     SettlementKind = "trade"
	SettlementChoice    SettlementKind = "choice"
)

// Settlement is one of *DiceCheckSettlement, *TradeSettlement or
// *ChoiceSettlement.
type Settlement interface {
	Kind() SettlementKind
	validate() error
}

// Branch is one narrative outcome and the effects it applies.
type Branch struct {
	Narrative string         `json:"narrative" yaml:"narrative"`
	Effects   effect.Effects `json:"effects" yaml:"effects"`
}

// CheckConfig describes how a dice check computes its pool. SlotIndex is
// only read by dice.CalcSpecific.
type CheckConfig struct {
	Attribute card.Attribute `json:"attribute" yaml:"attribute"`
	CalcMode  dice.CalcMode  `json:"calc_mode" yaml:"calc_mode"`
	Target    int            `json:"target" yaml:"target"`
	SlotIndex int            `json:"slot_index,omitempty" yaml:"slot_index,omitempty"`
}

// Results holds a branch per outcome. PartialSuccess is optional.
type Results struct {
	Success         Branch  `json:"success" yaml:"success"`
	PartialSuccess  *Branch `json:"partial_success,omitempty" yaml:"partial_success,omitempty"`
	Failure         Branch  `json:"failure" yaml:"failure"`
	CriticalFailure Branch  `json:"critical_failure" yaml:"critical_failure"`
}

// For selects the branch for r. A missing partial success branch falls back
// to failure.
func (r Results) For(result dice.Result) Branch {
	switch result {
	case dice.ResultSuccess:
		return r.Success
	case dice.ResultPartialSuccess:
		if r.PartialSuccess != nil {
			return *r.PartialSuccess
		}
		return r.Failure
	case dice.ResultCriticalFailure:
		return r.CriticalFailure
	default:
		return r.Failure
	}
}

// DiceCheckSettlement resolves a scene through a dice check.
type DiceCheckSettlement struct {
	Narrative string
	Check     CheckConfig
	Results   Results
}

func (*DiceCheckSettlement) Kind() SettlementKind { return SettlementDiceCheck }

func (s *DiceCheckSettlement) validate() error {
	if !s.Check.Attribute.Valid() {
		return fmt.Errorf("unknown check attribute %q", s.Check.Attribute)
	}
	if !s.Check.CalcMode.Valid() {
		return fmt.Errorf("unknown calc mode %q", s.Check.CalcMode)
	}
	if s.Check.Target < 0 {
		return fmt.Errorf("negative target %d", s.Check.Target)
	}
	return nil
}

// TradeSettlement opens a shop. The engine does not resolve trades.
type TradeSettlement struct {
	ShopInventory []string
	AllowSell     bool
	RefreshCycle  int
}

func (*TradeSettlement) Kind() SettlementKind { return SettlementTrade }

func (*TradeSettlement) validate() error { return nil }

// ChoiceOption is one selectable option of a choice scene.
type ChoiceOption struct {
	Label      string            `json:"label" yaml:"label"`
	Effects    effect.Effects    `json:"effects" yaml:"effects"`
	Conditions *UnlockConditions `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// ChoiceSettlement applies the effects of the chosen option.
type ChoiceSettlement struct {
	Options []ChoiceOption
}

func (*ChoiceSettlement) Kind() SettlementKind { return SettlementChoice }

func (s *ChoiceSettlement) validate() error {
	if len(s.Options) == 0 {
		return fmt.Errorf("choice settlement without options")
	}
	return nil
}

// Template is immutable scene content.
type Template struct {
	ID               string
	Name             string
	Description      string
	Background       string
	Kind             Kind
	Duration         int
	Slots            []Slot
	Settlement       Settlement
	UnlockConditions *UnlockConditions
	AbsencePenalty   *AbsencePenalty
}

// Validate checks the structural rules every registered template obeys.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing scene id", ErrInvalidTemplate)
	}
	if t.Kind != "" && !t.Kind.Valid() {
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidTemplate, t.ID, t.Kind)
	}
	if t.Duration <= 0 {
		return fmt.Errorf("%w: %s has duration %d", ErrInvalidTemplate, t.ID, t.Duration)
	}
	for i, slot := range t.Slots {
		if !slot.Type.Valid() {
			return fmt.Errorf("%w: %s slot %d has unknown type %q", ErrInvalidTemplate, t.ID, i, slot.Type)
		}
	}
	if t.Settlement == nil {
		return fmt.Errorf("%w: %s has no settlement", ErrInvalidTemplate, t.ID)
	}
	if err := t.Settlement.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, t.ID, err)
	}
	return nil
}

// DiceCheck returns the dice-check settlement, if that is the kind.
func (t Template) DiceCheck() (*DiceCheckSettlement, bool) {
	s, ok := t.Settlement.(*DiceCheckSettlement)
	return s, ok
}

// Choice returns the choice settlement, if that is the kind.
func (t Template) Choice() (*ChoiceSettlement, bool) {
	s, ok := t.Settlement.(*ChoiceSettlement)
	return s, ok
}

// State is the runtime state of one unlocked scene.
type State struct {
	SceneID        string      `json:"scene_id"`
	Status         Status      `json:"status"`
	RemainingTurns int         `json:"remaining_turns"`
	InvestedCards  []string    `json:"invested_cards"`
	SlotStates     []SlotState `json:"slot_states"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.InvestedCards = slices.Clone(s.InvestedCards)
	s.SlotStates = slices.Clone(s.SlotStates)
	return s
}

func (s *State) requiredFilled() bool {
	for _, slot := range s.SlotStates {
		if slot.Required && !slot.Filled() {
			return false
		}
	}
	return true
}

func (s *State) placedCards() []string {
	var ids []string
	for _, slot := range s.SlotStates {
		if slot.Filled() {
			ids = append(ids, slot.InvestedCardID)
		}
	}
	return ids
}

func newState(tpl Template) *State {
	slots := make([]SlotState, len(tpl.Slots))
	for i, slot := range tpl.Slots {
		slots[i] = SlotState{Type: slot.Type, Required: slot.Required, Index: i}
	}
	return &State{
		SceneID:        tpl.ID,
		Status:         StatusAvailable,
		RemainingTurns: tpl.Duration,
		InvestedCards:  []string{},
		SlotStates:     slots,
	}
}
