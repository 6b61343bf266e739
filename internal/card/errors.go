package card

import "errors"

// Structural failures. Callers match them with errors.Is.
var (
	ErrCapacityExceeded = errors.New("hand capacity exceeded")
	ErrProtectedCard    = errors.New("card is protected")
	ErrLockedCard       = errors.New("card is locked")
	ErrNotCharacter     = errors.New("card is not a character")
	ErrNotEquipment     = errors.New("card is not equipment")
	ErrNoSlotsAvailable = errors.New("no equipment slots available")
	ErrInvalidTemplate  = errors.New("invalid card template")
	ErrDuplicateID      = errors.New("duplicate card instance id")
)
