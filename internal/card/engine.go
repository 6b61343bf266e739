package card

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/LivingInDrm/sudanlike/internal/events"
	"go.uber.org/zap"
)

// MaxHandSize bounds the number of live instances.
const MaxHandSize = 512

const instancePrefix = "inst_"

// Engine is the arena of card instances. It owns every instance, the lock
// map (instance id -> scene id) and the instance id sequence.
type Engine struct {
	cards   map[string]*Instance
	order   []string
	locked  map[string]string
	nextSeq uint64
	bus     *events.Bus
	logger  *zap.Logger
}

// State is the serializable content of an Engine.
type State struct {
	Cards   []Record          `json:"instances"`
	Locked  map[string]string `json:"locked"`
	NextSeq uint64            `json:"next_instance_seq"`
}

// NewEngine creates an empty hand.
func NewEngine(bus *events.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cards:   make(map[string]*Instance),
		locked:  make(map[string]string),
		nextSeq: 1,
		bus:     bus,
		logger:  logger,
	}
}

// Add creates a new instance of tpl.
func (e *Engine) Add(tpl Template) (*Instance, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if len(e.cards) >= MaxHandSize {
		return nil, fmt.Errorf("%w: cannot add %s, hand holds %d cards", ErrCapacityExceeded, tpl.ID, MaxHandSize)
	}

	id := instancePrefix + strconv.FormatUint(e.nextSeq, 10)
	e.nextSeq++

	inst := newInstance(id, tpl)
	e.cards[id] = inst
	e.order = append(e.order, id)

	e.logger.Debug("card added",
		zap.String("instance_id", id),
		zap.String("card_id", tpl.ID),
	)
	e.bus.Publish(events.CardAdd, map[string]any{
		"instanceId": id,
		"cardId":     tpl.ID,
		"name":       tpl.Name,
	})
	return inst, nil
}

// Remove deletes an instance. It returns false for unknown ids and an error
// for protected or locked cards, or for an item worn by a locked character.
func (e *Engine) Remove(id string) (bool, error) {
	inst, ok := e.cards[id]
	if !ok {
		return false, nil
	}
	if inst.IsProtagonist() {
		return false, fmt.Errorf("%w: %s is the protagonist", ErrProtectedCard, id)
	}
	if scene, locked := e.locked[id]; locked {
		return false, fmt.Errorf("%w: %s is invested in %s", ErrLockedCard, id, scene)
	}

	var wearers []*Instance
	if inst.IsEquipment() {
		for _, other := range e.cards {
			if !slices.Contains(other.EquippedItems, id) {
				continue
			}
			if scene, locked := e.locked[other.InstanceID]; locked {
				return false, fmt.Errorf("%w: %s is worn by %s, invested in %s", ErrLockedCard, id, other.InstanceID, scene)
			}
			wearers = append(wearers, other)
		}
	}
	for _, w := range wearers {
		w.detach(id)
	}
	delete(e.cards, id)
	if i := slices.Index(e.order, id); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}

	e.logger.Debug("card removed", zap.String("instance_id", id), zap.String("card_id", inst.ID))
	e.bus.Publish(events.CardRemove, map[string]any{"instanceId": id, "cardId": inst.ID})
	return true, nil
}

// Get returns the live instance with id.
func (e *Engine) Get(id string) (*Instance, bool) {
	inst, ok := e.cards[id]
	return inst, ok
}

// GetByTemplateID returns the first held instance of a template.
func (e *Engine) GetByTemplateID(cardID string) (*Instance, bool) {
	for _, id := range e.order {
		if inst := e.cards[id]; inst.ID == cardID {
			return inst, true
		}
	}
	return nil, false
}

// Lock marks a card as invested in sceneID.
func (e *Engine) Lock(id, sceneID string) bool {
	if _, ok := e.cards[id]; !ok {
		return false
	}
	if _, locked := e.locked[id]; locked {
		return false
	}
	e.locked[id] = sceneID
	e.bus.Publish(events.CardLock, map[string]any{"instanceId": id, "sceneId": sceneID})
	return true
}

// Unlock releases a card.
func (e *Engine) Unlock(id string) bool {
	scene, locked := e.locked[id]
	if !locked {
		return false
	}
	delete(e.locked, id)
	e.bus.Publish(events.CardUnlock, map[string]any{"instanceId": id, "sceneId": scene})
	return true
}

// UnlockAll releases every card and returns how many were locked.
func (e *Engine) UnlockAll() int {
	n := len(e.locked)
	for _, inst := range e.Locked() {
		e.Unlock(inst.InstanceID)
	}
	return n
}

func (e *Engine) IsLocked(id string) bool {
	_, locked := e.locked[id]
	return locked
}

// LockedScene returns the scene a card is invested in.
func (e *Engine) LockedScene(id string) (string, bool) {
	scene, ok := e.locked[id]
	return scene, ok
}

// LockedInScenes groups locked instance ids by scene, in hand order.
func (e *Engine) LockedInScenes() map[string][]string {
	out := make(map[string][]string)
	for _, id := range e.order {
		if scene, ok := e.locked[id]; ok {
			out[scene] = append(out[scene], id)
		}
	}
	return out
}

// AddTag adds a tag to a card's current tags.
func (e *Engine) AddTag(id, tag string) bool {
	inst, ok := e.cards[id]
	if !ok || !inst.addTag(tag) {
		return false
	}
	e.bus.Publish(events.CardTagAdd, map[string]any{"instanceId": id, "tag": tag})
	return true
}

// RemoveTag removes a tag from a card's current tags.
func (e *Engine) RemoveTag(id, tag string) bool {
	inst, ok := e.cards[id]
	if !ok || !inst.removeTag(tag) {
		return false
	}
	e.bus.Publish(events.CardTagRemove, map[string]any{"instanceId": id, "tag": tag})
	return true
}

// All returns every instance in the order they were added.
func (e *Engine) All() []*Instance {
	return e.filter(func(*Instance) bool { return true })
}

// IDs returns every instance id in hand order.
func (e *Engine) IDs() []string {
	return slices.Clone(e.order)
}

func (e *Engine) ByType(t Type) []*Instance {
	return e.filter(func(c *Instance) bool { return c.Type == t })
}

func (e *Engine) Characters() []*Instance { return e.ByType(TypeCharacter) }
func (e *Engine) Equipment() []*Instance  { return e.ByType(TypeEquipment) }
func (e *Engine) Sultans() []*Instance    { return e.ByType(TypeSultan) }

// ByTag returns cards whose current tags include tag.
func (e *Engine) ByTag(tag string) []*Instance {
	return e.filter(func(c *Instance) bool { return c.HasTag(tag) })
}

// Protagonist returns the first card tagged as the protagonist.
func (e *Engine) Protagonist() (*Instance, bool) {
	for _, id := range e.order {
		if inst := e.cards[id]; inst.IsProtagonist() {
			return inst, true
		}
	}
	return nil, false
}

// Available returns unlocked cards.
func (e *Engine) Available() []*Instance {
	return e.filter(func(c *Instance) bool { return !e.IsLocked(c.InstanceID) })
}

// Locked returns cards invested in a scene.
func (e *Engine) Locked() []*Instance {
	return e.filter(func(c *Instance) bool { return e.IsLocked(c.InstanceID) })
}

func (e *Engine) Count() int { return len(e.cards) }

func (e *Engine) HasSpace() bool { return len(e.cards) < MaxHandSize }

func (e *Engine) AvailableSpace() int { return MaxHandSize - len(e.cards) }

// HasTemplate reports whether any held card was created from cardID.
func (e *Engine) HasTemplate(cardID string) bool {
	_, ok := e.GetByTemplateID(cardID)
	return ok
}

// HasCardWithTag reports whether any held card currently carries tag.
func (e *Engine) HasCardWithTag(tag string) bool {
	for _, inst := range e.cards {
		if inst.HasTag(tag) {
			return true
		}
	}
	return false
}

func (e *Engine) filter(keep func(*Instance) bool) []*Instance {
	out := make([]*Instance, 0)
	for _, id := range e.order {
		if inst := e.cards[id]; keep(inst) {
			out = append(out, inst)
		}
	}
	return out
}

// State captures the hand for a snapshot.
func (e *Engine) State() State {
	records := make([]Record, 0, len(e.order))
	for _, id := range e.order {
		records = append(records, e.cards[id].ToRecord())
	}
	return State{
		Cards:   records,
		Locked:  maps.Clone(e.locked),
		NextSeq: e.nextSeq,
	}
}

// Restore replaces the hand with a snapshot. Equip references to unknown
// instances are dropped; the id sequence never moves backwards.
func (e *Engine) Restore(state State) error {
	if len(state.Cards) > MaxHandSize {
		return fmt.Errorf("%w: snapshot holds %d cards", ErrCapacityExceeded, len(state.Cards))
	}

	cards := make(map[string]*Instance, len(state.Cards))
	order := make([]string, 0, len(state.Cards))
	seq := state.NextSeq
	for _, rec := range state.Cards {
		if rec.InstanceID == "" {
			return fmt.Errorf("%w: record for %s has no instance id", ErrInvalidTemplate, rec.CardID)
		}
		if _, dup := cards[rec.InstanceID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.InstanceID)
		}
		inst, err := rec.Instance()
		if err != nil {
			return fmt.Errorf("restore %s: %w", rec.InstanceID, err)
		}
		cards[inst.InstanceID] = inst
		order = append(order, inst.InstanceID)
		if n, ok := parseSeq(inst.InstanceID); ok && n >= seq {
			seq = n + 1
		}
	}

	for _, inst := range cards {
		kept := inst.EquippedItems[:0]
		for _, itemID := range inst.EquippedItems {
			if _, ok := cards[itemID]; ok {
				kept = append(kept, itemID)
				continue
			}
			e.logger.Warn("dropping equip reference to unknown card",
				zap.String("instance_id", inst.InstanceID),
				zap.String("item_id", itemID),
			)
		}
		inst.EquippedItems = kept
	}

	locked := make(map[string]string, len(state.Locked))
	for id, scene := range state.Locked {
		if _, ok := cards[id]; ok {
			locked[id] = scene
		}
	}

	if seq < 1 {
		seq = 1
	}
	if seq < e.nextSeq {
		seq = e.nextSeq
	}

	e.cards = cards
	e.order = order
	e.locked = locked
	e.nextSeq = seq
	return nil
}

// Clear removes every card and lock without emitting events. The id
// sequence is kept so ids are not reused.
func (e *Engine) Clear() {
	e.cards = make(map[string]*Instance)
	e.order = nil
	e.locked = make(map[string]string)
}

func parseSeq(id string) (uint64, bool) {
	rest, ok := strings.CutPrefix(id, instancePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
