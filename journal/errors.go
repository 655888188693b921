package journal

import "errors"

var (
	ErrNilEvent    = errors.New("journal: nil event")
	ErrEmptyStream = errors.New("journal: empty stream")
	ErrClosed      = errors.New("journal: store closed")
)
