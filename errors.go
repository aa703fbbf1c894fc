package qalarm

import "errors"

var (
	// ErrInvalidArgument is returned for sensor readings outside {0, 1} and
	// for non-positive shot counts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndex is returned when a register operation addresses a cell or
	// result slot that does not exist.
	ErrIndex = errors.New("index out of range")
)
