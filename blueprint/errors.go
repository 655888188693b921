package blueprint

import "errors"

var (
	ErrNilItemType        = errors.New("blueprint: nil item type")
	ErrEmptyName          = errors.New("blueprint: item type has empty name")
	ErrUnknownKind        = errors.New("blueprint: unknown item kind")
	ErrNoFeeRecipient     = errors.New("blueprint: cost set without fee recipient")
	ErrZeroAmount         = errors.New("blueprint: component amount must be positive")
	ErrMissingTarget      = errors.New("blueprint: component target missing")
	ErrComponentForbidden = errors.New("blueprint: component kind not allowed in fungible item")
	ErrInstanceAmount     = errors.New("blueprint: instance component amount must be 1")
	ErrUnknownComponent   = errors.New("blueprint: unknown component kind")

	// Manifest errors
	ErrScriptID     = errors.New("blueprint: manifest script has no id")
	ErrScriptDup    = errors.New("blueprint: duplicate script id")
	ErrScriptSource = errors.New("blueprint: manifest script needs exactly one of source or file")
)
