package atom

import "errors"

var (
	ErrNilDef    = errors.New("atom: nil definition")
	ErrZeroID    = errors.New("atom: identity zero is reserved for the payment currency")
	ErrNamespace = errors.New("atom: identity collides with the unique-token namespace")
	ErrEmptyName = errors.New("atom: empty atom name")
	ErrExists    = errors.New("atom: identity already registered")
	ErrNotFound  = errors.New("atom: not registered")
)
