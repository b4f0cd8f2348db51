package token

import "errors"

var (
	// ErrNotOwner is returned when a privileged call is made by anyone other
	// than the ledger owner.
	ErrNotOwner = errors.New("token: caller is not the owner")
	// ErrNotAuthorized is returned when the deposit path is invoked by anyone
	// other than the configured bridge manager.
	ErrNotAuthorized = errors.New("token: caller not authorized")
	// ErrInvalidAddress is returned when a null identifier is supplied where
	// one is forbidden.
	ErrInvalidAddress = errors.New("token: invalid address")
	// ErrInvalidRecipient is returned when a transfer targets the null
	// identifier.
	ErrInvalidRecipient = errors.New("token: invalid recipient")
	// ErrInsufficientBalance is returned when a debit exceeds the holder's
	// balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance is returned when a transferFrom exceeds the
	// (owner, spender) allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrEscrowNotConfigured is returned by HoldInEscrow before the escrow
	// contract address and funder capability are wired.
	ErrEscrowNotConfigured = errors.New("token: escrow contract not configured")
	// ErrLegacyNotConfigured is returned by Migrate before a legacy ledger
	// capability is wired.
	ErrLegacyNotConfigured = errors.New("token: legacy ledger not configured")
	// ErrNoBalance is returned by Migrate when the caller holds nothing on
	// the legacy ledger.
	ErrNoBalance = errors.New("token: no balance")
	// ErrArithmeticOverflow is returned when a result no longer fits 256-bit
	// unsigned semantics. Arithmetic fails rather than wraps.
	ErrArithmeticOverflow = errors.New("token: arithmetic overflow")
)
