package playback

import "errors"

// Sentinel errors. None of them leave the state changed.
var (
	ErrEmptyCatalog    = errors.New("nothing to show: catalog is empty")
	ErrIndexOutOfRange = errors.New("event index out of range")
	ErrUnknownKey      = errors.New("unknown key")
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrUnknownMode     = errors.New("unknown mode")
)
