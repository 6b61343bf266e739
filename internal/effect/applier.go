package effect

import (
	"maps"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/player"
	"go.uber.org/zap"
)

// TemplateLookup resolves card template ids for cards_add.
type TemplateLookup interface {
	CardTemplate(id string) (card.Template, bool)
}

// SceneUnlocker unlocks scenes by id, skipping unlock conditions.
type SceneUnlocker interface {
	Unlock(sceneID string) bool
}

// Outcome lists the cards an application actually created or removed.
type Outcome struct {
	Added   []string
	Removed []string
}

// Applier applies effects. Content-reference failures are logged and
// skipped so one bad reference cannot abort a settlement.
type Applier struct {
	ledger    *player.Ledger
	cards     *card.Engine
	scenes    SceneUnlocker
	templates TemplateLookup
	bus       *events.Bus
	logger    *zap.Logger
}

// NewApplier wires an applier. templates may be nil, in which case
// cards_add entries are skipped.
func NewApplier(ledger *player.Ledger, cards *card.Engine, scenes SceneUnlocker, templates TemplateLookup, bus *events.Bus, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{
		ledger:    ledger,
		cards:     cards,
		scenes:    scenes,
		templates: templates,
		bus:       bus,
		logger:    logger,
	}
}

// Apply applies fx. invested is the frozen invested-card order used to
// resolve positional references; it may be nil.
func (a *Applier) Apply(fx Effects, invested []string) Outcome {
	var out Outcome
	a.bus.Publish(events.EffectsApply, map[string]any{"effects": fx.Clone()})

	if fx.Gold != 0 {
		a.ledger.AddGold(fx.Gold)
	}
	if fx.Reputation != 0 {
		a.ledger.AddReputation(fx.Reputation)
	}
	if fx.GoldenDice != 0 {
		a.ledger.AddGoldenDice(fx.GoldenDice)
	}
	if fx.RewindCharges != 0 {
		a.ledger.AddRewindCharges(fx.RewindCharges)
	}

	for _, cardID := range fx.CardsAdd {
		if id, ok := a.addCard(cardID); ok {
			out.Added = append(out.Added, id)
		}
	}

	for _, ref := range fx.CardsRemove {
		id, ok := a.Resolve(ref, invested)
		if !ok {
			a.logger.Warn("cards_remove reference did not resolve", zap.String("ref", ref))
			continue
		}
		if a.remove(id) {
			out.Removed = append(out.Removed, id)
		}
	}

	if fx.ConsumeInvested {
		for _, id := range invested {
			if slices.Contains(out.Removed, id) {
				continue
			}
			if a.remove(id) {
				out.Removed = append(out.Removed, id)
			}
		}
	}

	a.applyTags(fx.TagsAdd, invested, a.cards.AddTag)
	a.applyTags(fx.TagsRemove, invested, a.cards.RemoveTag)

	for _, sceneID := range fx.UnlockScenes {
		if a.scenes == nil || !a.scenes.Unlock(sceneID) {
			a.logger.Debug("unlock_scenes entry had no effect", zap.String("scene_id", sceneID))
		}
	}
	return out
}

// Resolve turns a card reference into a held instance id. Positional
// references resolve against invested; literal references match an
// instance id first, then the first instance of a template id.
func (a *Applier) Resolve(ref string, invested []string) (string, bool) {
	if idx, ok := InvestedIndex(ref); ok {
		if idx >= len(invested) {
			return "", false
		}
		id := invested[idx]
		if _, held := a.cards.Get(id); !held {
			return "", false
		}
		return id, true
	}
	if _, ok := a.cards.Get(ref); ok {
		return ref, true
	}
	if inst, ok := a.cards.GetByTemplateID(ref); ok {
		return inst.InstanceID, true
	}
	return "", false
}

func (a *Applier) addCard(cardID string) (string, bool) {
	if a.templates == nil {
		a.logger.Warn("cards_add skipped, no template source", zap.String("card_id", cardID))
		return "", false
	}
	tpl, ok := a.templates.CardTemplate(cardID)
	if !ok {
		a.logger.Warn("cards_add template not found", zap.String("card_id", cardID))
		return "", false
	}
	inst, err := a.cards.Add(tpl)
	if err != nil {
		a.logger.Warn("cards_add failed", zap.String("card_id", cardID), zap.Error(err))
		return "", false
	}
	return inst.InstanceID, true
}

func (a *Applier) remove(id string) bool {
	ok, err := a.cards.Remove(id)
	if err != nil {
		a.logger.Warn("card removal skipped", zap.String("instance_id", id), zap.Error(err))
		return false
	}
	return ok
}

func (a *Applier) applyTags(tags map[string][]string, invested []string, mutate func(id, tag string) bool) {
	for _, ref := range slices.Sorted(maps.Keys(tags)) {
		id, ok := a.Resolve(ref, invested)
		if !ok {
			a.logger.Warn("tag reference did not resolve", zap.String("ref", ref))
			continue
		}
		for _, tag := range tags[ref] {
			mutate(id, tag)
		}
	}
}
