package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrBetBuilderUnavailable = errors.New("bet builder unavailable")
	ErrLockHeld              = errors.New("lock held")
)
