package model

import "errors"

var (
	// ErrInvalidInput indicates an unknown crop, vehicle or location, or a bad quantity or unit
	ErrInvalidInput = errors.New("invalid input")
)
