package person

import "errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSourceUnavailable = errors.New("record source unavailable")
	ErrInsufficientData  = errors.New("record source under-delivered")
	ErrNotFound          = errors.New("dataset not found")
	ErrCorruptData       = errors.New("dataset content is corrupt")
)
