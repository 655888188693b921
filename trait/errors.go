package trait

import "errors"

var (
	ErrEmptyName     = errors.New("trait: empty trait name")
	ErrReservedName  = errors.New("trait: reserved trait name")
	ErrDuplicateName = errors.New("trait: duplicate trait name")
	ErrInvalidValue  = errors.New("trait: invalid trait value")
)
