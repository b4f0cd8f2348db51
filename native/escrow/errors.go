package escrow

import "errors"

var (
	// ErrNotOwner is returned when a privileged call is made by anyone other
	// than the ledger owner.
	ErrNotOwner = errors.New("escrow: caller is not the owner")
	// ErrNotAuthorized is returned when FundUser is called by anything other
	// than the configured token ledger address, or DisburseFunds by anything
	// other than the configured disbursal authority.
	ErrNotAuthorized = errors.New("escrow: caller not authorized")
	// ErrInvalidAddress is returned when a null identifier is supplied where
	// one is forbidden.
	ErrInvalidAddress = errors.New("escrow: invalid address")
	// ErrNoBalance is returned when a disbursal targets a user with nothing
	// in escrow.
	ErrNoBalance = errors.New("escrow: no balance")
	// ErrLengthMismatch is returned when recipients and amounts differ in
	// length.
	ErrLengthMismatch = errors.New("escrow: recipients and amounts length mismatch")
	// ErrInsufficientEscrowBalance is returned when a disbursal index would
	// drive the user's escrowed balance negative.
	ErrInsufficientEscrowBalance = errors.New("escrow: insufficient escrow balance")
	// ErrArithmeticOverflow is returned when a credited balance no longer
	// fits 256-bit unsigned semantics.
	ErrArithmeticOverflow = errors.New("escrow: arithmetic overflow")
)
