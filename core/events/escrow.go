package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/core/types"
)

const (
	// TypeEscrowBalanceUpdated is emitted whenever an escrowed user balance
	// changes, carrying the new total.
	TypeEscrowBalanceUpdated = "escrow.balanceUpdated"
	// TypeConfigUpdated is emitted when a privileged configuration slot is
	// reassigned on either ledger.
	TypeConfigUpdated = "config.updated"
)

// EscrowBalanceUpdated reports the balance a user identifier holds after a
// fund or disbursal call.
type EscrowBalanceUpdated struct {
	UserID  string
	Balance *big.Int
}

func (EscrowBalanceUpdated) EventType() string { return TypeEscrowBalanceUpdated }

func (e EscrowBalanceUpdated) Event() *types.Event {
	return &types.Event{Type: TypeEscrowBalanceUpdated, Attributes: map[string]string{
		"userId":  e.UserID,
		"balance": formatAmount(e.Balance),
	}}
}

// ConfigUpdated reports the new value of a privileged configuration slot.
// Only the latest value is retained on the ledger itself; history lives in
// the notification log.
type ConfigUpdated struct {
	Slot    string
	Address common.Address
}

func (ConfigUpdated) EventType() string { return TypeConfigUpdated }

func (e ConfigUpdated) Event() *types.Event {
	return &types.Event{Type: TypeConfigUpdated, Attributes: map[string]string{
		"slot":    e.Slot,
		"address": e.Address.Hex(),
	}}
}
