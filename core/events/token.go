package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/core/types"
)

const (
	// TypeTokenTransfer is emitted for every balance movement, including
	// zero-amount transfers.
	TypeTokenTransfer = "token.transfer"
	// TypeTokenApproval is emitted when an allowance is set or adjusted.
	TypeTokenApproval = "token.approval"
	// TypeTokenMinted is emitted when the bridge deposit path credits supply.
	TypeTokenMinted = "token.minted"
	// TypeTokenBurned is emitted when a holder withdraws to the root chain.
	TypeTokenBurned = "token.burned"
	// TypeTokenEscrowHold is emitted when a holder moves tokens into escrow
	// under a user identifier.
	TypeTokenEscrowHold = "token.escrowHold"
	// TypeTokenMigrated is emitted when a legacy balance is migrated in.
	TypeTokenMigrated = "token.migrated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Transfer captures a movement between two token accounts.
type Transfer struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTokenTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTokenTransfer, Attributes: map[string]string{
		"from":   e.From.Hex(),
		"to":     e.To.Hex(),
		"amount": formatAmount(e.Amount),
	}}
}

// Approval captures the new absolute allowance granted to a spender.
type Approval struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

func (Approval) EventType() string { return TypeTokenApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeTokenApproval, Attributes: map[string]string{
		"owner":   e.Owner.Hex(),
		"spender": e.Spender.Hex(),
		"amount":  formatAmount(e.Amount),
	}}
}

// Minted captures a bridge deposit credit together with the resulting supply.
type Minted struct {
	Account common.Address
	Amount  *big.Int
	Supply  *big.Int
}

func (Minted) EventType() string { return TypeTokenMinted }

func (e Minted) Event() *types.Event {
	return &types.Event{Type: TypeTokenMinted, Attributes: map[string]string{
		"account": e.Account.Hex(),
		"amount":  formatAmount(e.Amount),
		"supply":  formatAmount(e.Supply),
	}}
}

// Burned captures a withdraw burn together with the resulting supply.
type Burned struct {
	Account common.Address
	Amount  *big.Int
	Supply  *big.Int
}

func (Burned) EventType() string { return TypeTokenBurned }

func (e Burned) Event() *types.Event {
	return &types.Event{Type: TypeTokenBurned, Attributes: map[string]string{
		"account": e.Account.Hex(),
		"amount":  formatAmount(e.Amount),
		"supply":  formatAmount(e.Supply),
	}}
}

// EscrowHold captures a holder funding the escrow ledger under a user
// identifier.
type EscrowHold struct {
	Sender common.Address
	UserID string
	Amount *big.Int
}

func (EscrowHold) EventType() string { return TypeTokenEscrowHold }

func (e EscrowHold) Event() *types.Event {
	return &types.Event{Type: TypeTokenEscrowHold, Attributes: map[string]string{
		"sender": e.Sender.Hex(),
		"userId": e.UserID,
		"amount": formatAmount(e.Amount),
	}}
}

// Migrated captures a legacy balance pulled into this ledger.
type Migrated struct {
	Account common.Address
	Amount  *big.Int
}

func (Migrated) EventType() string { return TypeTokenMigrated }

func (e Migrated) Event() *types.Event {
	return &types.Event{Type: TypeTokenMigrated, Attributes: map[string]string{
		"account": e.Account.Hex(),
		"amount":  formatAmount(e.Amount),
	}}
}
