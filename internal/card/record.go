package card

import "slices"

// Record is the flat, serializable form of a template or instance, used by
// save snapshots and content files. Category-specific fields are empty for
// cards of other categories.
type Record struct {
	InstanceID     string            `json:"instance_id,omitempty" yaml:"-"`
	CardID         string            `json:"card_id" yaml:"card_id"`
	Name           string            `json:"name" yaml:"name"`
	Type           Type              `json:"type" yaml:"type"`
	Rarity         Rarity            `json:"rarity" yaml:"rarity"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Image          string            `json:"image,omitempty" yaml:"image,omitempty"`
	Tags           []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes     map[Attribute]int `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Special        *Special          `json:"special_attributes,omitempty" yaml:"special_attributes,omitempty"`
	EquipmentSlots int               `json:"equipment_slots,omitempty" yaml:"equipment_slots,omitempty"`
	EquipmentType  EquipmentType     `json:"equipment_type,omitempty" yaml:"equipment_type,omitempty"`
	AttributeBonus map[Attribute]int `json:"attribute_bonus,omitempty" yaml:"attribute_bonus,omitempty"`
	SpecialBonus   *Special          `json:"special_bonus,omitempty" yaml:"special_bonus,omitempty"`
	GemSlots       int               `json:"gem_slots,omitempty" yaml:"gem_slots,omitempty"`
	EquippedItems  []string          `json:"equipped_items,omitempty" yaml:"-"`
	CurrentTags    []string          `json:"current_tags" yaml:"-"`
}

// TemplateRecord flattens a template.
func TemplateRecord(t Template) Record {
	rec := Record{
		CardID:      t.ID,
		Name:        t.Name,
		Type:        t.Type,
		Rarity:      t.Rarity,
		Description: t.Description,
		Image:       t.Image,
		Tags:        slices.Clone(t.Tags),
	}
	switch p := t.Profile.(type) {
	case CharacterProfile:
		rec.Attributes = p.Attributes.Clone()
		if p.Special != (Special{}) {
			sp := p.Special
			rec.Special = &sp
		}
		rec.EquipmentSlots = p.EquipmentSlots
	case EquipmentProfile:
		rec.EquipmentType = p.Subtype
		rec.AttributeBonus = p.AttributeBonus.Clone()
		if p.SpecialBonus != (Special{}) {
			sp := p.SpecialBonus
			rec.SpecialBonus = &sp
		}
		rec.GemSlots = p.GemSlots
	case PlainProfile:
		rec.GemSlots = p.GemSlots
	}
	return rec
}

// ToRecord flattens an instance including its mutable state.
func (c *Instance) ToRecord() Record {
	rec := TemplateRecord(c.Template)
	rec.InstanceID = c.InstanceID
	rec.EquippedItems = slices.Clone(c.EquippedItems)
	rec.CurrentTags = slices.Clone(c.CurrentTags)
	if rec.CurrentTags == nil {
		rec.CurrentTags = []string{}
	}
	return rec
}

// Template rebuilds the typed template and validates it.
func (r Record) Template() (Template, error) {
	tpl := Template{
		ID:          r.CardID,
		Name:        r.Name,
		Type:        r.Type,
		Rarity:      r.Rarity,
		Description: r.Description,
		Image:       r.Image,
		Tags:        slices.Clone(r.Tags),
	}
	switch r.Type {
	case TypeCharacter:
		p := CharacterProfile{
			Attributes:     AttributeSet(r.Attributes).Clone(),
			EquipmentSlots: r.EquipmentSlots,
		}
		if r.Special != nil {
			p.Special = *r.Special
		}
		tpl.Profile = p
	case TypeEquipment:
		p := EquipmentProfile{
			Subtype:        r.EquipmentType,
			AttributeBonus: AttributeSet(r.AttributeBonus).Clone(),
			GemSlots:       r.GemSlots,
		}
		if r.SpecialBonus != nil {
			p.SpecialBonus = *r.SpecialBonus
		}
		tpl.Profile = p
	default:
		tpl.Profile = PlainProfile{GemSlots: r.GemSlots}
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// Instance rebuilds a runtime instance from a saved record. A nil
// CurrentTags falls back to the template tags.
func (r Record) Instance() (*Instance, error) {
	tpl, err := r.Template()
	if err != nil {
		return nil, err
	}
	inst := newInstance(r.InstanceID, tpl)
	inst.EquippedItems = slices.Clone(r.EquippedItems)
	if r.CurrentTags != nil {
		inst.CurrentTags = slices.Clone(r.CurrentTags)
	}
	return inst, nil
}
