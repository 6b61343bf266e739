// Package events carries the one-way domain notifications a game session
// emits for observers such as a UI or a CLI transcript.
package events

import "time"

// Type names a domain event.
type Type string

const (
	// Game lifecycle
	GameStart Type = "game:start"
	GameLoad  Type = "game:load"
	GameSave  Type = "game:save"
	GameEnd   Type = "game:end"

	// Day cycle
	DayStart      Type = "day:start"
	DayDawn       Type = "day:dawn"
	DayAction     Type = "day:action"
	DaySettlement Type = "day:settlement"
	DayEnd        Type = "day:end"

	// Scenes
	SceneUnlock      Type = "scene:unlock"
	SceneParticipate Type = "scene:participate"
	SceneSettle      Type = "scene:settle"
	SceneComplete    Type = "scene:complete"
	SceneExpire      Type = "scene:expire"

	// Cards
	CardAdd       Type = "card:add"
	CardRemove    Type = "card:remove"
	CardEquip     Type = "card:equip"
	CardUnequip   Type = "card:unequip"
	CardTagAdd    Type = "card:tag_add"
	CardTagRemove Type = "card:tag_remove"
	CardLock      Type = "card:lock"
	CardUnlock    Type = "card:unlock"

	// Dice checks
	DiceRollStart  Type = "dice:roll_start"
	DiceRollResult Type = "dice:roll_result"
	DiceExplosion  Type = "dice:explosion"
	DiceReroll     Type = "dice:reroll"
	DiceGoldenDice Type = "dice:golden_dice"
	DiceComplete   Type = "dice:complete"

	// Resources
	ResourceGoldChange       Type = "resource:gold_change"
	ResourceReputationChange Type = "resource:reputation_change"
	ResourceGoldenDiceChange Type = "resource:golden_dice_change"
	ResourceRewindChange     Type = "resource:rewind_change"

	// Think
	ThinkUse   Type = "think:use"
	ThinkReset Type = "think:reset"

	// Effects
	EffectsApply Type = "effects:apply"
)

// Category returns the prefix before the colon, e.g. "dice" for dice:reroll.
func (t Type) Category() string {
	for i := 0; i < len(t); i++ {
		if t[i] == ':' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event is a single notification. Data carries event-specific fields keyed
// by name; observers must treat it as read-only.
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
}

// IntField returns an integer field of the event payload.
func (e Event) IntField(key string) (int, bool) {
	v, ok := e.Data[key].(int)
	return v, ok
}

// StringField returns a string field of the event payload.
func (e Event) StringField(key string) (string, bool) {
	v, ok := e.Data[key].(string)
	return v, ok
}
