package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/core/events"
)

// Migrate pulls the caller's full balance from the superseded legacy ledger
// and credits the equivalent amount here. The caller must have pre-approved
// this ledger's address for the full legacy balance; the legacy TransferFrom
// consumes that allowance.
//
// The path is not idempotent by itself: a second call is only a no-op because
// the first drained the legacy balance, so it fails with ErrNoBalance rather
// than double-crediting. Callers are expected to gate this externally as a
// one-time operation.
func (l *Ledger) Migrate(caller common.Address) (*big.Int, error) {
	if l.legacy == nil {
		return nil, ErrLegacyNotConfigured
	}
	balance, err := l.legacy.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Sign() == 0 {
		return nil, ErrNoBalance
	}
	amount := new(big.Int).Set(balance)
	var supply *big.Int
	err = l.commit(func() error {
		if err := l.legacy.TransferFrom(l.address, caller, l.address, amount); err != nil {
			return err
		}
		supply, err = l.mint(caller, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.emit(events.Migrated{Account: caller, Amount: amount})
	l.emit(events.Minted{Account: caller, Amount: amount, Supply: supply})
	return amount, nil
}
