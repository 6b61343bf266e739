// Package card owns card templates, card instances and the rules for
// holding, locking, tagging and equipping them.
package card

import (
	"fmt"
	"slices"
)

// Type is the category of a card.
type Type string

const (
	TypeCharacter  Type = "character"
	TypeEquipment  Type = "equipment"
	TypeIntel      Type = "intel"
	TypeConsumable Type = "consumable"
	TypeBook       Type = "book"
	TypeThought    Type = "thought"
	TypeGem        Type = "gem"
	TypeSultan     Type = "sultan"
)

var allTypes = []Type{
	TypeCharacter, TypeEquipment, TypeIntel, TypeConsumable,
	TypeBook, TypeThought, TypeGem, TypeSultan,
}

// Valid reports whether t is a known card type.
func (t Type) Valid() bool {
	return slices.Contains(allTypes, t)
}

// Rarity grades a card.
type Rarity string

const (
	RarityGold   Rarity = "gold"
	RaritySilver Rarity = "silver"
	RarityCopper Rarity = "copper"
	RarityStone  Rarity = "stone"
)

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	switch r {
	case RarityGold, RaritySilver, RarityCopper, RarityStone:
		return true
	}
	return false
}

// Attribute is one of the eight named character attributes.
type Attribute string

const (
	AttrPhysique Attribute = "physique"
	AttrCharm    Attribute = "charm"
	AttrWisdom   Attribute = "wisdom"
	AttrCombat   Attribute = "combat"
	AttrSocial   Attribute = "social"
	AttrSurvival Attribute = "survival"
	AttrStealth  Attribute = "stealth"
	AttrMagic    Attribute = "magic"
)

// AllAttributes lists attributes in display order.
var AllAttributes = []Attribute{
	AttrPhysique, AttrCharm, AttrWisdom, AttrCombat,
	AttrSocial, AttrSurvival, AttrStealth, AttrMagic,
}

// Valid reports whether a is a known attribute.
func (a Attribute) Valid() bool {
	return slices.Contains(AllAttributes, a)
}

// EquipmentType is the subtype of an equipment card.
type EquipmentType string

const (
	EquipWeapon    EquipmentType = "weapon"
	EquipArmor     EquipmentType = "armor"
	EquipAccessory EquipmentType = "accessory"
	EquipMount     EquipmentType = "mount"
)

// Valid reports whether e is a known equipment subtype.
func (e EquipmentType) Valid() bool {
	switch e {
	case EquipWeapon, EquipArmor, EquipAccessory, EquipMount:
		return true
	}
	return false
}

// AttributeSet maps attributes to values. Missing attributes count as zero.
type AttributeSet map[Attribute]int

// Clone returns an independent copy.
func (s AttributeSet) Clone() AttributeSet {
	if s == nil {
		return nil
	}
	out := make(AttributeSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Special holds the special attributes support and reroll.
type Special struct {
	Support int `json:"support,omitempty" yaml:"support,omitempty"`
	Reroll  int `json:"reroll,omitempty" yaml:"reroll,omitempty"`
}

// Add returns the component-wise sum.
func (s Special) Add(o Special) Special {
	return Special{Support: s.Support + o.Support, Reroll: s.Reroll + o.Reroll}
}

// Profile carries the category-specific part of a template. It is one of
// CharacterProfile, EquipmentProfile or PlainProfile.
type Profile interface {
	profile()
	clone() Profile
}

// CharacterProfile describes a character: attributes, specials and how many
// equipment cards it can wear.
type CharacterProfile struct {
	Attributes     AttributeSet
	Special        Special
	EquipmentSlots int
}

// EquipmentProfile describes an equippable card and the bonuses it grants.
type EquipmentProfile struct {
	Subtype        EquipmentType
	AttributeBonus AttributeSet
	SpecialBonus   Special
	GemSlots       int
}

// PlainProfile covers every other card type.
type PlainProfile struct {
	GemSlots int
}

func (CharacterProfile) profile() {}
func (EquipmentProfile) profile() {}
func (PlainProfile) profile()     {}

func (p CharacterProfile) clone() Profile {
	p.Attributes = p.Attributes.Clone()
	return p
}

func (p EquipmentProfile) clone() Profile {
	p.AttributeBonus = p.AttributeBonus.Clone()
	return p
}

func (p PlainProfile) clone() Profile { return p }

// Template is immutable card content.
type Template struct {
	ID          string
	Name        string
	Type        Type
	Rarity      Rarity
	Description string
	Image       string
	Tags        []string
	Profile     Profile
}

// Character returns the character profile if the template has one.
func (t Template) Character() (CharacterProfile, bool) {
	p, ok := t.Profile.(CharacterProfile)
	return p, ok
}

// Equipment returns the equipment profile if the template has one.
func (t Template) Equipment() (EquipmentProfile, bool) {
	p, ok := t.Profile.(EquipmentProfile)
	return p, ok
}

// Validate checks that the profile matches the card type.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing card id", ErrInvalidTemplate)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: card %s has unknown type %q", ErrInvalidTemplate, t.ID, t.Type)
	}
	switch t.Type {
	case TypeCharacter:
		if _, ok := t.Character(); !ok {
			return fmt.Errorf("%w: character %s has no character profile", ErrInvalidTemplate, t.ID)
		}
	case TypeEquipment:
		p, ok := t.Equipment()
		if !ok {
			return fmt.Errorf("%w: equipment %s has no equipment profile", ErrInvalidTemplate, t.ID)
		}
		if !p.Subtype.Valid() {
			return fmt.Errorf("%w: equipment %s has unknown subtype %q", ErrInvalidTemplate, t.ID, p.Subtype)
		}
	default:
		switch t.Profile.(type) {
		case nil, PlainProfile:
		default:
			return fmt.Errorf("%w: %s card %s cannot carry a %T", ErrInvalidTemplate, t.Type, t.ID, t.Profile)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t Template) Clone() Template {
	t.Tags = slices.Clone(t.Tags)
	if t.Profile != nil {
		t.Profile = t.Profile.clone()
	}
	return t
}
