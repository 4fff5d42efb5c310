package util

import "errors"

// ErrReplacerFull is returned when the replacer's tracked set is at capacity.
var ErrReplacerFull = errors.New("replacer is at capacity")

type KashaError struct {
	Message string
	Err     error
}

func (e *KashaError) Error() string {
	return e.Message
}

func (e *KashaError) Unwrap() error {
	return e.Err
}

// PoolExhaustedError signals that every frame is pinned: the free list is empty
// and the replacer has no victim. Callers should back off or abort, not crash.
type PoolExhaustedError struct {
	*KashaError
}

func NewPoolExhaustedError() *PoolExhaustedError {
	return &PoolExhaustedError{
		&KashaError{Message: "all frames are pinned, no page can be evicted"},
	}
}

// IoError wraps a failure from the disk manager.
type IoError struct {
	*KashaError
}

func NewIoError(err error) *IoError {
	return &IoError{
		&KashaError{Message: "disk i/o failed", Err: err},
	}
}

func IsPoolExhausted(err error) bool {
	var e *PoolExhaustedError
	return errors.As(err, &e)
}

func IsIoError(err error) bool {
	var e *IoError
	return errors.As(err, &e)
}
