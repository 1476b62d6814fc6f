package model

import "errors"

var (
	ErrInvalidKind   = errors.New("type must be income or expense")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCategory = errors.New("category is required")
	ErrMissingDate   = errors.New("date is required")
	ErrEmptyName     = errors.New("name is required")
	ErrInvalidDay    = errors.New("day must be between 1 and 28")
	ErrInvalidMonth  = errors.New("month must be YYYY-MM")
)
