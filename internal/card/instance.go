package card

import "slices"

// ProtagonistTag marks the card that cannot be removed from the hand.
const ProtagonistTag = "protagonist"

// Instance is a card held by the player. It copies its template at creation
// time; EquippedItems and CurrentTags are the only fields that change.
// EquippedItems holds instance ids owned by the same Engine, never pointers.
type Instance struct {
	Template
	InstanceID    string
	EquippedItems []string
	CurrentTags   []string
}

func newInstance(id string, tpl Template) *Instance {
	tpl = tpl.Clone()
	return &Instance{
		Template:    tpl,
		InstanceID:  id,
		CurrentTags: slices.Clone(tpl.Tags),
	}
}

// Clone returns a deep copy.
func (c *Instance) Clone() *Instance {
	return &Instance{
		Template:      c.Template.Clone(),
		InstanceID:    c.InstanceID,
		EquippedItems: slices.Clone(c.EquippedItems),
		CurrentTags:   slices.Clone(c.CurrentTags),
	}
}

func (c *Instance) IsCharacter() bool { return c.Type == TypeCharacter }
func (c *Instance) IsEquipment() bool { return c.Type == TypeEquipment }
func (c *Instance) IsSultan() bool    { return c.Type == TypeSultan }

// IsProtagonist reports whether the card currently carries the protagonist tag.
func (c *Instance) IsProtagonist() bool {
	return c.HasTag(ProtagonistTag)
}

// HasTag checks the current (mutable) tags.
func (c *Instance) HasTag(tag string) bool {
	return slices.Contains(c.CurrentTags, tag)
}

func (c *Instance) addTag(tag string) bool {
	if c.HasTag(tag) {
		return false
	}
	c.CurrentTags = append(c.CurrentTags, tag)
	return true
}

func (c *Instance) removeTag(tag string) bool {
	i := slices.Index(c.CurrentTags, tag)
	if i < 0 {
		return false
	}
	c.CurrentTags = slices.Delete(c.CurrentTags, i, i+1)
	return true
}

// Attribute returns the raw attribute value; non-characters have none.
func (c *Instance) Attribute(attr Attribute) int {
	if p, ok := c.Character(); ok {
		return p.Attributes[attr]
	}
	return 0
}

// AttributeTotal sums all raw attributes.
func (c *Instance) AttributeTotal() int {
	total := 0
	if p, ok := c.Character(); ok {
		for _, v := range p.Attributes {
			total += v
		}
	}
	return total
}

// Support returns the base support special attribute.
func (c *Instance) Support() int {
	if p, ok := c.Character(); ok {
		return p.Special.Support
	}
	return 0
}

// Reroll returns the base reroll special attribute.
func (c *Instance) Reroll() int {
	if p, ok := c.Character(); ok {
		return p.Special.Reroll
	}
	return 0
}

// EquipmentSlots returns the number of items the card can wear.
func (c *Instance) EquipmentSlots() int {
	if p, ok := c.Character(); ok {
		return p.EquipmentSlots
	}
	return 0
}

// CanEquip reports whether the card is a character with at least one slot.
func (c *Instance) CanEquip() bool {
	return c.IsCharacter() && c.EquipmentSlots() > 0
}

// AvailableEquipmentSlots is slot count minus items currently worn.
func (c *Instance) AvailableEquipmentSlots() int {
	free := c.EquipmentSlots() - len(c.EquippedItems)
	if free < 0 {
		return 0
	}
	return free
}

func (c *Instance) CanEquipMore() bool {
	return c.AvailableEquipmentSlots() > 0
}

// IsEquipped reports whether itemID is worn by this card.
func (c *Instance) IsEquipped(itemID string) bool {
	return slices.Contains(c.EquippedItems, itemID)
}

func (c *Instance) detach(itemID string) bool {
	i := slices.Index(c.EquippedItems, itemID)
	if i < 0 {
		return false
	}
	c.EquippedItems = slices.Delete(c.EquippedItems, i, i+1)
	return true
}

// AttributeBonus is the bonus this card grants when worn.
func (c *Instance) AttributeBonus(attr Attribute) int {
	if p, ok := c.Equipment(); ok {
		return p.AttributeBonus[attr]
	}
	return 0
}

// SpecialBonus is the special bonus this card grants when worn.
func (c *Instance) SpecialBonus() Special {
	if p, ok := c.Equipment(); ok {
		return p.SpecialBonus
	}
	return Special{}
}

// Subtype returns the equipment subtype, empty for other cards.
func (c *Instance) Subtype() EquipmentType {
	if p, ok := c.Equipment(); ok {
		return p.Subtype
	}
	return ""
}
