// Package settlement resolves participated scenes: it runs the dice check
// or choice, applies the chosen effects and releases the invested cards.
package settlement

import (
	"errors"
	"fmt"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/dice"
	"github.com/LivingInDrm/sudanlike/internal/effect"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"github.com/LivingInDrm/sudanlike/internal/scene"
	"go.uber.org/zap"
)

// TradeNarrative is the narrative of every trade settlement.
const TradeNarrative = "Trade completed."

var (
	ErrInvalidOption = errors.New("invalid choice option")
	ErrNotSettleable = errors.New("scene cannot be settled")
)

// Result describes one settled scene.
type Result struct {
	SceneID        string               `json:"scene_id"`
	Kind           scene.SettlementKind `json:"settlement_type"`
	CheckResult    dice.Result          `json:"check_result,omitempty"`
	Check          *dice.State          `json:"check,omitempty"`
	EffectsApplied effect.Effects       `json:"effects_applied"`
	Narrative      string               `json:"narrative"`
	CardsReturned  []string             `json:"cards_returned"`
	CardsConsumed  []string             `json:"cards_consumed"`
}

// Executor settles scenes against one session's engines.
type Executor struct {
	scenes  *scene.Engine
	cards   *card.Engine
	applier *effect.Applier
	rng     dice.Source
	checker *dice.Checker
	pending map[string]*dice.Checker
	bus     *events.Bus
	logger  *zap.Logger
}

// NewExecutor wires an executor. Every check draws from rng.
func NewExecutor(scenes *scene.Engine, cards *card.Engine, applier *effect.Applier, rng dice.Source, bus *events.Bus, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		scenes:  scenes,
		cards:   cards,
		applier: applier,
		rng:     rng,
		checker: dice.NewChecker(rng, bus, logger),
		pending: make(map[string]*dice.Checker),
		bus:     bus,
		logger:  logger,
	}
}

// SettleScene resolves a participated scene in one pass. It returns nil
// without error when the scene is unknown or not participated. Choice
// scenes take their first option.
func (x *Executor) SettleScene(id string) (*Result, error) {
	tpl, state, ok := x.settleable(id)
	if !ok {
		return nil, nil
	}

	switch s := tpl.Settlement.(type) {
	case *scene.DiceCheckSettlement:
		x.scenes.MarkSettling(id)
		pool, rerolls := x.checkInputs(s.Check, state.InvestedCards)
		x.checker.Start(pool, s.Check.Target, rerolls)
		if _, err := x.checker.RollInitial(); err != nil {
			return nil, fmt.Errorf("settle %s: %w", id, err)
		}
		final, err := x.checker.Finalize()
		if err != nil {
			return nil, fmt.Errorf("settle %s: %w", id, err)
		}
		x.checker.Reset()
		return x.resolveDice(id, s, final, state.InvestedCards), nil

	case *scene.TradeSettlement:
		x.scenes.MarkSettling(id)
		return x.finish(id, scene.SettlementTrade, TradeNarrative, effect.Effects{}, state.InvestedCards), nil

	case *scene.ChoiceSettlement:
		return x.SettleChoice(id, 0)
	}
	return nil, fmt.Errorf("%w: %s has settlement %T", ErrNotSettleable, id, tpl.Settlement)
}

// SettleChoice resolves a participated choice scene with the option at
// index. An out-of-range index fails before anything changes.
func (x *Executor) SettleChoice(id string, index int) (*Result, error) {
	tpl, state, ok := x.settleable(id)
	if !ok {
		return nil, nil
	}
	choice, ok := tpl.Choice()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a choice scene", ErrNotSettleable, id)
	}
	if index < 0 || index >= len(choice.Options) {
		return nil, fmt.Errorf("%w: %d of %d for %s", ErrInvalidOption, index, len(choice.Options), id)
	}

	x.scenes.MarkSettling(id)
	option := choice.Options[index]
	return x.finish(id, scene.SettlementChoice, option.Label, option.Effects, state.InvestedCards), nil
}

// OptionView is a choice option with its availability.
type OptionView struct {
	Index     int
	Label     string
	Available bool
}

// Options lists a choice scene's options and whether their conditions
// currently hold. It returns nil for other scenes.
func (x *Executor) Options(id string, resources scene.ResourceView) []OptionView {
	tpl, ok := x.scenes.Template(id)
	if !ok {
		return nil
	}
	choice, ok := tpl.Choice()
	if !ok {
		return nil
	}
	completed := x.scenes.CompletedSet()
	out := make([]OptionView, len(choice.Options))
	for i, opt := range choice.Options {
		out[i] = OptionView{
			Index:     i,
			Label:     opt.Label,
			Available: scene.ConditionsMet(opt.Conditions, resources, x.cards, completed),
		}
	}
	return out
}

// BeginCheck starts an interactive check for a participated dice-check
// scene and marks it settling. The caller drives the returned checker
// through its phases and hands it back to ResolveCheck.
func (x *Executor) BeginCheck(id string) (*dice.Checker, error) {
	tpl, state, ok := x.settleable(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not awaiting settlement", ErrNotSettleable, id)
	}
	s, ok := tpl.DiceCheck()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dice check", ErrNotSettleable, id)
	}

	x.scenes.MarkSettling(id)
	pool, rerolls := x.checkInputs(s.Check, state.InvestedCards)
	checker := dice.NewChecker(x.rng, x.bus, x.logger)
	checker.Start(pool, s.Check.Target, rerolls)
	x.pending[id] = checker
	return checker, nil
}

// ResolveCheck applies the outcome of a finished interactive check. The
// checker must be the one BeginCheck returned for id.
func (x *Executor) ResolveCheck(id string, checker *dice.Checker) (*Result, error) {
	tpl, ok := x.scenes.Template(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrUnknownScene, id)
	}
	state, ok := x.scenes.State(id)
	if !ok || state.Status != scene.StatusSettling {
		return nil, fmt.Errorf("%w: %s has no check in progress", ErrNotSettleable, id)
	}
	s, ok := tpl.DiceCheck()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dice check", ErrNotSettleable, id)
	}
	if checker == nil || x.pending[id] != checker {
		return nil, fmt.Errorf("%w: checker was not started for %s", ErrNotSettleable, id)
	}
	final, ok := checker.State()
	if !ok {
		return nil, dice.ErrNoActiveCheck
	}
	if final.Phase != dice.PhaseResult {
		return nil, fmt.Errorf("%w: check for %s is in %s", dice.ErrWrongPhase, id, final.Phase)
	}
	delete(x.pending, id)
	return x.resolveDice(id, s, final, state.InvestedCards), nil
}

// ApplyAbsencePenalty finishes an available scene that ran out unplayed,
// applying its penalty if it has one. It never settles the scene.
func (x *Executor) ApplyAbsencePenalty(id string) bool {
	tpl, ok := x.scenes.Template(id)
	if !ok {
		return false
	}
	state, ok := x.scenes.State(id)
	if !ok || state.Status != scene.StatusAvailable {
		return false
	}
	if p := tpl.AbsencePenalty; p != nil {
		x.logger.Debug("absence penalty", zap.String("scene_id", id), zap.String("narrative", p.Narrative))
		x.applier.Apply(p.Effects, nil)
	}
	return x.scenes.Expire(id)
}

// Checker returns the executor's own checker, used by one-pass settlement.
func (x *Executor) Checker() *dice.Checker { return x.checker }

func (x *Executor) settleable(id string) (scene.Template, scene.State, bool) {
	tpl, ok := x.scenes.Template(id)
	if !ok {
		return scene.Template{}, scene.State{}, false
	}
	state, ok := x.scenes.State(id)
	if !ok || state.Status != scene.StatusParticipated {
		return scene.Template{}, scene.State{}, false
	}
	return tpl, state, true
}

func (x *Executor) invested(ids []string) []*card.Instance {
	out := make([]*card.Instance, 0, len(ids))
	for _, id := range ids {
		if inst, ok := x.cards.Get(id); ok {
			out = append(out, inst)
		}
	}
	return out
}

func (x *Executor) checkInputs(check scene.CheckConfig, ids []string) (pool, rerolls int) {
	cards := x.invested(ids)
	pool = dice.CalculatePool(cards, check.Attribute, check.CalcMode, check.SlotIndex)
	rerolls = dice.TotalReroll(cards, x.cards)
	return pool, rerolls
}

func (x *Executor) resolveDice(id string, s *scene.DiceCheckSettlement, final dice.State, invested []string) *Result {
	branch := s.Results.For(final.Result)
	x.logger.Debug("dice settlement",
		zap.String("scene_id", id),
		zap.Int("dice_pool", final.DicePool),
		zap.Int("successes", final.SuccessCount),
		zap.String("result", string(final.Result)),
	)
	res := x.finish(id, scene.SettlementDiceCheck, branch.Narrative, branch.Effects, invested)
	res.CheckResult = final.Result
	res.Check = &final
	return res
}

// finish releases the scene before applying effects so that consumed
// cards are no longer locked when they are removed.
func (x *Executor) finish(id string, kind scene.SettlementKind, narrative string, fx effect.Effects, invested []string) *Result {
	released := x.scenes.Complete(id, x.cards)
	outcome := x.applier.Apply(fx, invested)

	consumed := []string{}
	for _, cardID := range invested {
		if slices.Contains(outcome.Removed, cardID) {
			consumed = append(consumed, cardID)
		}
	}
	returned := []string{}
	for _, cardID := range released {
		if !slices.Contains(consumed, cardID) {
			returned = append(returned, cardID)
		}
	}

	res := &Result{
		SceneID:        id,
		Kind:           kind,
		EffectsApplied: fx.Clone(),
		Narrative:      narrative,
		CardsReturned:  returned,
		CardsConsumed:  consumed,
	}
	x.logger.Debug("scene settled",
		zap.String("scene_id", id),
		zap.String("kind", string(kind)),
		zap.Strings("returned", returned),
		zap.Strings("consumed", consumed),
	)
	x.bus.Publish(events.SceneSettle, map[string]any{"sceneId": id, "result": res})
	return res
}
