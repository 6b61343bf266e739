package scene

import (
	"fmt"
	"maps"
	"slices"

	"github.com/LivingInDrm/sudanlike/internal/card"
	"github.com/LivingInDrm/sudanlike/internal/events"
	"go.uber.org/zap"
)

// ResourceView is the part of the ledger unlock conditions read.
type ResourceView interface {
	Reputation() int
}

// CardView answers ownership questions for unlock conditions.
type CardView interface {
	HasCardWithTag(tag string) bool
	HasTemplate(cardID string) bool
}

// CardRegistry is the hand as seen by slot placement and participation.
// *card.Engine satisfies it.
type CardRegistry interface {
	Get(id string) (*card.Instance, bool)
	IsLocked(id string) bool
	Lock(id, sceneID string) bool
	Unlock(id string) bool
}

// Engine is the scene registry and the per-scene state machine. Runtime
// state is created on unlock and only dropped by Clear or Reset. Listings
// are ordered by scene id so iteration is stable across save and load.
type Engine struct {
	templates map[string]Template
	states    map[string]*State
	bus       *events.Bus
	logger    *zap.Logger
}

// NewEngine creates an empty registry.
func NewEngine(bus *events.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		templates: make(map[string]Template),
		states:    make(map[string]*State),
		bus:       bus,
		logger:    logger,
	}
}

// Register adds a template. Registering an id again replaces the template
// but leaves any runtime state alone.
func (e *Engine) Register(tpl Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	e.templates[tpl.ID] = tpl
	return nil
}

// RegisterAll registers every template, stopping at the first invalid one.
func (e *Engine) RegisterAll(tpls []Template) error {
	for _, tpl := range tpls {
		if err := e.Register(tpl); err != nil {
			return err
		}
	}
	return nil
}

// Template returns a registered template.
func (e *Engine) Template(id string) (Template, bool) {
	tpl, ok := e.templates[id]
	return tpl, ok
}

// Templates returns every registered template ordered by id.
func (e *Engine) Templates() []Template {
	out := make([]Template, 0, len(e.templates))
	for _, id := range slices.Sorted(maps.Keys(e.templates)) {
		out = append(out, e.templates[id])
	}
	return out
}

// State returns a copy of a scene's runtime state.
func (e *Engine) State(id string) (State, bool) {
	s, ok := e.states[id]
	if !ok {
		return State{}, false
	}
	return s.Clone(), true
}

// IsUnlocked reports whether id has runtime state.
func (e *Engine) IsUnlocked(id string) bool {
	_, ok := e.states[id]
	return ok
}

// Unlock creates runtime state for a registered scene. It returns false
// when the template is unknown or the scene is already unlocked.
func (e *Engine) Unlock(id string) bool {
	tpl, ok := e.templates[id]
	if !ok {
		return false
	}
	if _, unlocked := e.states[id]; unlocked {
		return false
	}
	e.states[id] = newState(tpl)

	e.logger.Debug("scene unlocked", zap.String("scene_id", id), zap.Int("duration", tpl.Duration))
	e.bus.Publish(events.SceneUnlock, map[string]any{"sceneId": id})
	return true
}

// CheckUnlockConditions evaluates tpl's unlock conditions.
func (e *Engine) CheckUnlockConditions(tpl Template, resources ResourceView, cards CardView, completed map[string]bool) bool {
	return ConditionsMet(tpl.UnlockConditions, resources, cards, completed)
}

// ConditionsMet evaluates conditions. Nil conditions are always met.
func ConditionsMet(c *UnlockConditions, resources ResourceView, cards CardView, completed map[string]bool) bool {
	if c == nil {
		return true
	}
	if c.ReputationMin != nil && resources.Reputation() < *c.ReputationMin {
		return false
	}
	if c.ReputationMax != nil && resources.Reputation() > *c.ReputationMax {
		return false
	}
	for _, tag := range c.RequiredTags {
		if !cards.HasCardWithTag(tag) {
			return false
		}
	}
	for _, cardID := range c.RequiredCards {
		if !cards.HasTemplate(cardID) {
			return false
		}
	}
	for _, sceneID := range c.CompletedScenes {
		if !completed[sceneID] {
			return false
		}
	}
	return true
}

// CanPlace reports whether inst could go into slotIndex right now.
func (e *Engine) CanPlace(sceneID string, slotIndex int, inst *card.Instance) bool {
	s, slot, ok := e.openSlot(sceneID, slotIndex)
	if !ok || inst == nil {
		return false
	}
	if slices.Contains(s.placedCards(), inst.InstanceID) {
		return false
	}
	return slot.Type.Accepts(inst.Type)
}

// PlaceCard puts cardID into a slot of an available scene. Unknown ids,
// filled or locked slots and a card already placed in the scene return
// false. A locked card or a card of the wrong type is an error.
func (e *Engine) PlaceCard(sceneID string, slotIndex int, cardID string, cards CardRegistry) (bool, error) {
	s, slot, ok := e.openSlot(sceneID, slotIndex)
	if !ok {
		return false, nil
	}
	inst, ok := cards.Get(cardID)
	if !ok {
		return false, nil
	}
	if slices.Contains(s.placedCards(), cardID) {
		return false, nil
	}
	if cards.IsLocked(cardID) {
		return false, fmt.Errorf("%w: %s cannot be placed in %s", card.ErrLockedCard, cardID, sceneID)
	}
	if !slot.Type.Accepts(inst.Type) {
		return false, fmt.Errorf("%w: %s card %s in %s slot %d of %s",
			ErrSlotTypeMismatch, inst.Type, cardID, slot.Type, slotIndex, sceneID)
	}

	slot.InvestedCardID = cardID
	e.logger.Debug("card placed",
		zap.String("scene_id", sceneID),
		zap.Int("slot_index", slotIndex),
		zap.String("instance_id", cardID),
	)
	return true, nil
}

// ClearSlot takes the card out of an unlocked slot of an available scene.
func (e *Engine) ClearSlot(sceneID string, slotIndex int) (string, bool) {
	s, ok := e.states[sceneID]
	if !ok || s.Status != StatusAvailable || slotIndex < 0 || slotIndex >= len(s.SlotStates) {
		return "", false
	}
	slot := &s.SlotStates[slotIndex]
	if slot.Locked || !slot.Filled() {
		return "", false
	}
	id := slot.InvestedCardID
	slot.InvestedCardID = ""
	return id, true
}

func (e *Engine) openSlot(sceneID string, slotIndex int) (*State, *SlotState, bool) {
	s, ok := e.states[sceneID]
	if !ok || s.Status != StatusAvailable {
		return nil, nil, false
	}
	if slotIndex < 0 || slotIndex >= len(s.SlotStates) {
		return nil, nil, false
	}
	slot := &s.SlotStates[slotIndex]
	if slot.Locked || slot.Filled() {
		return nil, nil, false
	}
	return s, slot, true
}

// Participate commits the placed cards. Every required slot must be filled
// and every placed card must still be held and unlocked. The invested
// cards are frozen in slot order and locked along with their slots.
func (e *Engine) Participate(id string, cards CardRegistry) bool {
	s, ok := e.states[id]
	if !ok || s.Status != StatusAvailable || !s.requiredFilled() {
		return false
	}

	placed := s.placedCards()
	for _, cardID := range placed {
		if _, held := cards.Get(cardID); !held || cards.IsLocked(cardID) {
			e.logger.Debug("participation rejected",
				zap.String("scene_id", id),
				zap.String("instance_id", cardID),
			)
			return false
		}
	}

	for _, cardID := range placed {
		cards.Lock(cardID, id)
	}
	for i := range s.SlotStates {
		if s.SlotStates[i].Filled() {
			s.SlotStates[i].Locked = true
		}
	}
	if placed == nil {
		placed = []string{}
	}
	s.InvestedCards = placed
	s.Status = StatusParticipated

	e.logger.Debug("scene participated", zap.String("scene_id", id), zap.Strings("cards", placed))
	e.bus.Publish(events.SceneParticipate, map[string]any{"sceneId": id, "cards": slices.Clone(placed)})
	return true
}

// DecrementRemainingTurns counts down a participated scene, flooring at
// zero. Other statuses are left alone. It returns -1 for unknown scenes.
func (e *Engine) DecrementRemainingTurns(id string) int {
	s, ok := e.states[id]
	if !ok {
		return -1
	}
	if s.Status == StatusParticipated {
		s.RemainingTurns = max(0, s.RemainingTurns-1)
	}
	return s.RemainingTurns
}

// AgeAvailable counts down a scene nobody has played yet, so that it can
// run out and take the absence path. It returns -1 for unknown scenes.
func (e *Engine) AgeAvailable(id string) int {
	s, ok := e.states[id]
	if !ok {
		return -1
	}
	if s.Status == StatusAvailable {
		s.RemainingTurns = max(0, s.RemainingTurns-1)
	}
	return s.RemainingTurns
}

// ExpiredScenes lists participated scenes with no turns left.
func (e *Engine) ExpiredScenes() []string {
	return e.ids(func(s *State) bool { return s.Status == StatusParticipated && s.RemainingTurns == 0 })
}

// AbsentScenes lists available scenes that ran out unplayed.
func (e *Engine) AbsentScenes() []string {
	return e.ids(func(s *State) bool { return s.Status == StatusAvailable && s.RemainingTurns == 0 })
}

// MarkSettling moves a scene into settlement.
func (e *Engine) MarkSettling(id string) bool {
	s, ok := e.states[id]
	if !ok || s.Status == StatusCompleted {
		return false
	}
	s.Status = StatusSettling
	return true
}

// Complete releases every invested card and slot and finishes the scene.
// It returns the invested ids.
func (e *Engine) Complete(id string, cards CardRegistry) []string {
	s, ok := e.states[id]
	if !ok {
		return []string{}
	}
	for _, cardID := range s.InvestedCards {
		cards.Unlock(cardID)
	}
	for i := range s.SlotStates {
		s.SlotStates[i].Locked = false
	}
	s.Status = StatusCompleted

	e.logger.Debug("scene completed", zap.String("scene_id", id))
	e.bus.Publish(events.SceneComplete, map[string]any{"sceneId": id})
	return slices.Clone(s.InvestedCards)
}

// Expire finishes an available scene without settlement.
func (e *Engine) Expire(id string) bool {
	s, ok := e.states[id]
	if !ok || s.Status != StatusAvailable {
		return false
	}
	s.Status = StatusCompleted

	e.logger.Debug("scene expired", zap.String("scene_id", id))
	e.bus.Publish(events.SceneExpire, map[string]any{"sceneId": id})
	return true
}

// ActiveScenes returns available and participated scenes.
func (e *Engine) ActiveScenes() []State {
	return e.filter(func(s *State) bool {
		return s.Status == StatusAvailable || s.Status == StatusParticipated
	})
}

func (e *Engine) AvailableScenes() []State {
	return e.filter(func(s *State) bool { return s.Status == StatusAvailable })
}

func (e *Engine) ParticipatedScenes() []State {
	return e.filter(func(s *State) bool { return s.Status == StatusParticipated })
}

func (e *Engine) CompletedSceneIDs() []string {
	return e.ids(func(s *State) bool { return s.Status == StatusCompleted })
}

// CompletedSet is CompletedSceneIDs as a set, for unlock conditions.
func (e *Engine) CompletedSet() map[string]bool {
	out := make(map[string]bool)
	for _, id := range e.CompletedSceneIDs() {
		out[id] = true
	}
	return out
}

// UnlockedIDs lists every scene with runtime state.
func (e *Engine) UnlockedIDs() []string {
	return slices.Sorted(maps.Keys(e.states))
}

// States copies every runtime state for a snapshot.
func (e *Engine) States() map[string]State {
	out := make(map[string]State, len(e.states))
	for id, s := range e.states {
		out[id] = s.Clone()
	}
	return out
}

// Restore replaces every runtime state. Each state must belong to a
// registered template and match its slot layout.
func (e *Engine) Restore(states map[string]State) error {
	restored := make(map[string]*State, len(states))
	for id, s := range states {
		tpl, ok := e.templates[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownScene, id)
		}
		if s.SceneID != "" && s.SceneID != id {
			return fmt.Errorf("%w: state for %s is keyed %s", ErrInvalidState, s.SceneID, id)
		}
		if !s.Status.Valid() {
			return fmt.Errorf("%w: %s has status %q", ErrInvalidState, id, s.Status)
		}
		if len(s.SlotStates) != len(tpl.Slots) {
			return fmt.Errorf("%w: %s has %d slots, template has %d", ErrInvalidState, id, len(s.SlotStates), len(tpl.Slots))
		}
		c := s.Clone()
		c.SceneID = id
		if c.InvestedCards == nil {
			c.InvestedCards = []string{}
		}
		for i := range c.SlotStates {
			c.SlotStates[i].Index = i
		}
		restored[id] = &c
	}
	e.states = restored
	return nil
}

// Clear drops every runtime state and keeps the templates.
func (e *Engine) Clear() {
	e.states = make(map[string]*State)
}

// Reset drops runtime state and templates.
func (e *Engine) Reset() {
	e.Clear()
	e.templates = make(map[string]Template)
}

func (e *Engine) ids(keep func(*State) bool) []string {
	var out []string
	for _, id := range slices.Sorted(maps.Keys(e.states)) {
		if keep(e.states[id]) {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) filter(keep func(*State) bool) []State {
	var out []State
	for _, id := range e.ids(keep) {
		out = append(out, e.states[id].Clone())
	}
	return out
}
