package service

import (
	"errors"

	"github.com/okian/kiosk/internal/domain/playback"
)

// Sentinel errors returned by the coordinator.
var (
	ErrNotReady      = errors.New("catalog still loading")
	ErrEmptyCatalog  = playback.ErrEmptyCatalog
	ErrInboxFull     = errors.New("coordinator inbox full")
	ErrStopped       = errors.New("coordinator not running")
	ErrAlreadyLoaded = errors.New("catalog already installed")
)
