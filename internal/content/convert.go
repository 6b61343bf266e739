package content

import (
	"fmt"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/scene"
)

const (
	minAttribute = 1
	maxAttribute = 50
)

func cardTemplate(rec card.Record) (card.Template, error) {
	if rec.CardID == "" {
		return card.Template{}, fmt.Errorf("%w: missing card_id", ErrInvalidContent)
	}
	if rec.Name == "" {
		return card.Template{}, fmt.Errorf("%w: card %s has no name", ErrInvalidContent, rec.CardID)
	}
	if !rec.Rarity.Valid() {
		return card.Template{}, fmt.Errorf("%w: card %s has unknown rarity %q", ErrInvalidContent, rec.CardID, rec.Rarity)
	}

	switch rec.Type {
	case card.TypeCharacter:
		if len(rec.Attributes) == 0 {
			return card.Template{}, fmt.Errorf("%w: character %s has no attributes", ErrInvalidContent, rec.CardID)
		}
		for attr, v := range rec.Attributes {
			if !attr.Valid() {
				return card.Template{}, fmt.Errorf("%w: character %s has unknown attribute %q", ErrInvalidContent, rec.CardID, attr)
			}
			if v < minAttribute || v > maxAttribute {
				return card.Template{}, fmt.Errorf("%w: character %s %s=%d out of range", ErrInvalidContent, rec.CardID, attr, v)
			}
		}
	case card.TypeEquipment:
		if rec.EquipmentType == "" {
			return card.Template{}, fmt.Errorf("%w: equipment %s has no equipment_type", ErrInvalidContent, rec.CardID)
		}
		for attr := range rec.AttributeBonus {
			if !attr.Valid() {
				return card.Template{}, fmt.Errorf("%w: equipment %s boosts unknown attribute %q", ErrInvalidContent, rec.CardID, attr)
			}
		}
	}
	if rec.EquipmentSlots < 0 || rec.GemSlots < 0 {
		return card.Template{}, fmt.Errorf("%w: card %s has negative slot count", ErrInvalidContent, rec.CardID)
	}

	tpl, err := rec.Template()
	if err != nil {
		return card.Template{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return tpl, nil
}

func sceneTemplate(rec SceneRecord) (scene.Template, error) {
	if rec.ID == "" {
		return scene.Template{}, fmt.Errorf("%w: missing scene_id", ErrInvalidContent)
	}
	if rec.Name == "" {
		return scene.Template{}, fmt.Errorf("%w: scene %s has no name", ErrInvalidContent, rec.ID)
	}
	if !rec.Type.Valid() {
		return scene.Template{}, fmt.Errorf("%w: scene %s has unknown type %q", ErrInvalidContent, rec.ID, rec.Type)
	}

	settlement, err := settlementOf(rec.Settlement)
	if err != nil {
		return scene.Template{}, fmt.Errorf("%w: scene %s: %v", ErrInvalidContent, rec.ID, err)
	}
	tpl := scene.Template{
		ID:               rec.ID,
		Name:             rec.Name,
		Description:      rec.Description,
		Background:       rec.Background,
		Kind:             rec.Type,
		Duration:         rec.Duration,
		Slots:            slices.Clone(rec.Slots),
		Settlement:       settlement,
		UnlockConditions: rec.UnlockConditions,
		AbsencePenalty:   rec.AbsencePenalty,
	}
	if err := tpl.Validate(); err != nil {
		return scene.Template{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return tpl, nil
}

func settlementOf(rec SettlementRecord) (scene.Settlement, error) {
	hasDice := rec.Check != nil || rec.Results != nil || rec.Narrative != ""
	hasTrade := len(rec.ShopInventory) > 0 || rec.AllowSell || rec.RefreshCycle != 0
	hasChoice := len(rec.Options) > 0

	switch rec.Type {
	case scene.SettlementDiceCheck:
		if hasTrade || hasChoice {
			return nil, fmt.Errorf("dice_check settlement carries trade or choice fields")
		}
		if rec.Check == nil {
			return nil, fmt.Errorf("dice_check settlement has no check")
		}
		if rec.Check.Target < 1 {
			return nil, fmt.Errorf("dice_check target %d below 1", rec.Check.Target)
		}
		r := rec.Results
		if r == nil || r.Success == nil || r.Failure == nil || r.CriticalFailure == nil {
			return nil, fmt.Errorf("dice_check settlement needs success, failure and critical_failure results")
		}
		return &scene.DiceCheckSettlement{
			Narrative: rec.Narrative,
			Check:     *rec.Check,
			Results: scene.Results{
				Success:         *r.Success,
				PartialSuccess:  r.PartialSuccess,
				Failure:         *r.Failure,
				CriticalFailure: *r.CriticalFailure,
			},
		}, nil

	case scene.SettlementTrade:
		if hasDice || hasChoice {
			return nil, fmt.Errorf("trade settlement carries dice_check or choice fields")
		}
		if rec.RefreshCycle < 0 {
			return nil, fmt.Errorf("negative refresh_cycle %d", rec.RefreshCycle)
		}
		return &scene.TradeSettlement{
			ShopInventory: slices.Clone(rec.ShopInventory),
			AllowSell:     rec.AllowSell,
			RefreshCycle:  rec.RefreshCycle,
		}, nil

	case scene.SettlementChoice:
		if hasDice || hasTrade {
			return nil, fmt.Errorf("choice settlement carries dice_check or trade fields")
		}
		for i, opt := range rec.Options {
			if opt.Label == "" {
				return nil, fmt.Errorf("choice option %d has no label", i)
			}
		}
		return &scene.ChoiceSettlement{Options: slices.Clone(rec.Options)}, nil
	}
	return nil, fmt.Errorf("unknown settlement type %q", rec.Type)
}
