package service

import "errors"

// ErrLockHeld is returned when a full-vault sync is requested while
// another one is genuinely in progress (lock present and not expired).
// Callers should wait or proceed with cached state.
var ErrLockHeld = errors.New("vault sync already in progress")
