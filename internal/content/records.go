package content

import (
	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/effect"
	"github.com/LivingInDrm/sudanlike/internal/scene"
)

// Document is one content file. Either list may be empty.
type Document struct {
	Cards  []card.Record `yaml:"cards"`
	Scenes []SceneRecord `yaml:"scenes"`
}

// SceneRecord is the file form of a scene template.
type SceneRecord struct {
	ID               string                  `yaml:"scene_id"`
	Name             string                  `yaml:"name"`
	Description      string                  `yaml:"description"`
	Background       string                  `yaml:"background_image"`
	Type             scene.Kind              `yaml:"type"`
	Duration         int                     `yaml:"duration"`
	Slots            []scene.Slot            `yaml:"slots"`
	Settlement       SettlementRecord        `yaml:"settlement"`
	UnlockConditions *scene.UnlockConditions `yaml:"unlock_conditions,omitempty"`
	AbsencePenalty   *scene.AbsencePenalty   `yaml:"absence_penalty,omitempty"`
}

// SettlementRecord is the union of every settlement kind, discriminated by
// Type. Fields of other kinds must be empty.
type SettlementRecord struct {
	Type scene.SettlementKind `yaml:"type"`

	// dice_check
	Narrative string             `yaml:"narrative,omitempty"`
	Check     *scene.CheckConfig `yaml:"check,omitempty"`
	Results   *ResultsRecord     `yaml:"results,omitempty"`

	// trade
	ShopInventory []string `yaml:"shop_inventory,omitempty"`
	AllowSell     bool     `yaml:"allow_sell,omitempty"`
	RefreshCycle  int      `yaml:"refresh_cycle,omitempty"`

	// choice
	Options []scene.ChoiceOption `yaml:"options,omitempty"`
}

// ResultsRecord keeps the mandatory branches as pointers so a missing one
// can be told apart from an empty one.
type ResultsRecord struct {
	Success         *scene.Branch `yaml:"success"`
	PartialSuccess  *scene.Branch `yaml:"partial_success,omitempty"`
	Failure         *scene.Branch `yaml:"failure"`
	CriticalFailure *scene.Branch `yaml:"critical_failure"`
}

// effectsOf lists every effect block a scene record carries, for reference
// checks.
func (r SceneRecord) effectsOf() []effect.Effects {
	var out []effect.Effects
	if r.AbsencePenalty != nil {
		out = append(out, r.AbsencePenalty.Effects)
	}
	if res := r.Settlement.Results; res != nil {
		for _, b := range []*scene.Branch{res.Success, res.PartialSuccess, res.Failure, res.CriticalFailure} {
			if b != nil {
				out = append(out, b.Effects)
			}
		}
	}
	for _, opt := range r.Settlement.Options {
		out = append(out, opt.Effects)
	}
	return out
}
