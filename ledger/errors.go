package ledger

import "errors"

var (
	ErrEmptyOwner          = errors.New("ledger: empty owner address")
	ErrNilArgument         = errors.New("ledger: nil id or amount")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrLengthMismatch      = errors.New("ledger: ids and amounts length mismatch")
	ErrOverflow            = errors.New("ledger: supply overflow")
	ErrSelfApproval        = errors.New("ledger: cannot set approval for self")
	ErrTransferVetoed      = errors.New("ledger: transfer vetoed")
)
