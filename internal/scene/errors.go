package scene

import "errors"

var (
	ErrSlotTypeMismatch = errors.New("card type does not fit slot")
	ErrInvalidTemplate  = errors.New("invalid scene template")
	ErrUnknownScene     = errors.New("unknown scene")
	ErrInvalidState     = errors.New("invalid scene state")
)
