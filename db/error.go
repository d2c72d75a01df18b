package db

import "github.com/pkg/errors"

var (
	ErrInput        = errors.New("db: invalid input")
	ErrDuplicateKey = errors.New("db: duplicate key")
	ErrTableFull    = errors.New("db: table full")
	ErrCorruption   = errors.New("db: corrupt database file")
	ErrBounds       = errors.New("db: index out of bounds")
	ErrEndOfTable   = errors.New("db: cursor at end of table")
)
