package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/core/events"
)

// State is the slice of persisted state the escrow engine operates on: the
// string-keyed user-balance table and the escrow ledger's configuration
// slots. Token balances are never touched directly; disbursal credits go
// through the TokenCreditor capability.
type State interface {
	EscrowUserBalance(userID string) (*big.Int, error)
	SetEscrowUserBalance(userID string, amount *big.Int) error
	EscrowOwner() (common.Address, error)
	SetEscrowOwner(addr common.Address) error
	DisbursalAddress() (common.Address, error)
	SetDisbursalAddress(addr common.Address) error
	RenderTokenAddress() (common.Address, error)
	SetRenderTokenAddress(addr common.Address) error
	Snapshot() int
	RevertToSnapshot(rev int) error
	DiscardSnapshot(rev int) error
}

// TokenCreditor is the capability handle for the token ledger's transfer
// entry point. Disbursals move tokens straight from the escrow contract's
// token balance to each recipient; the escrow ledger never re-enters the
// hold path.
type TokenCreditor interface {
	Transfer(caller, to common.Address, amount *big.Int) error
}

// Ledger is the escrow engine: it accepts funds only from the configured
// token ledger address and pays them out only for the configured disbursal
// authority.
type Ledger struct {
	state   State
	emitter events.Emitter
	address common.Address
	token   TokenCreditor
}

// NewLedger creates an escrow ledger identified by its own contract address.
// The address is the account its pooled token balance lives under.
func NewLedger(state State, address common.Address) *Ledger {
	return &Ledger{
		state:   state,
		emitter: events.NoopEmitter{},
		address: address,
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetTokenCreditor wires the token ledger's transfer entry point used when
// disbursing.
func (l *Ledger) SetTokenCreditor(token TokenCreditor) { l.token = token }

// Address returns the ledger's own contract address.
func (l *Ledger) Address() common.Address { return l.address }

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

func normalizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: negative amount")
	}
	if amount.BitLen() > 256 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Set(amount), nil
}

// commit runs fn under a snapshot, unwinding its state writes on error and
// discarding the snapshot on success so the journal does not retain committed
// history.
func (l *Ledger) commit(fn func() error) error {
	rev := l.state.Snapshot()
	if err := fn(); err != nil {
		if revertErr := l.state.RevertToSnapshot(rev); revertErr != nil {
			return fmt.Errorf("escrow: revert: %w", revertErr)
		}
		return err
	}
	return l.state.DiscardSnapshot(rev)
}

// UserBalance returns the escrowed balance held under the identifier. Pure
// read; unknown identifiers report zero.
func (l *Ledger) UserBalance(userID string) (*big.Int, error) {
	return l.state.EscrowUserBalance(userID)
}

// JobBalance is the legacy alias for UserBalance.
func (l *Ledger) JobBalance(jobID string) (*big.Int, error) {
	return l.UserBalance(jobID)
}

// FundUser credits the user's escrowed balance. Only the configured token
// ledger address may call it; the tokens themselves were already moved to
// this ledger's account by the caller.
func (l *Ledger) FundUser(caller common.Address, userID string, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	tokenAddr, err := l.state.RenderTokenAddress()
	if err != nil {
		return err
	}
	if tokenAddr == (common.Address{}) || caller != tokenAddr {
		return ErrNotAuthorized
	}
	balance, err := l.state.EscrowUserBalance(userID)
	if err != nil {
		return err
	}
	credited := new(big.Int).Add(balance, amt)
	if credited.BitLen() > 256 {
		return ErrArithmeticOverflow
	}
	if err := l.commit(func() error { return l.state.SetEscrowUserBalance(userID, credited) }); err != nil {
		return err
	}
	l.emit(events.EscrowBalanceUpdated{UserID: userID, Balance: credited})
	return nil
}

// FundJob is the legacy alias for FundUser.
func (l *Ledger) FundJob(caller common.Address, jobID string, amount *big.Int) error {
	return l.FundUser(caller, jobID, amount)
}

// DisburseFunds pays out of the user's escrowed balance to each recipient in
// order. The total is deliberately not pre-validated against the balance: a
// later index can fail with ErrInsufficientEscrowBalance after earlier
// recipients were already paid, leaving an intermediate but individually
// valid state. Each index is atomic on its own; the debit and the token
// credit commit together.
//
// One balance-update notification is emitted per call with the final
// remaining balance, including when the loop stops early.
func (l *Ledger) DisburseFunds(caller common.Address, userID string, recipients []common.Address, amounts []*big.Int) error {
	authority, err := l.state.DisbursalAddress()
	if err != nil {
		return err
	}
	if authority == (common.Address{}) || caller != authority {
		return ErrNotAuthorized
	}
	balance, err := l.state.EscrowUserBalance(userID)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return ErrNoBalance
	}
	if len(recipients) != len(amounts) {
		return ErrLengthMismatch
	}
	if l.token == nil {
		return fmt.Errorf("escrow: token ledger not configured")
	}
	rev := l.state.Snapshot()
	for i := range recipients {
		if err := l.disburseOne(userID, recipients[i], amounts[i]); err != nil {
			l.emitRemaining(userID)
			// Earlier indices stay committed; only their undo entries are
			// released.
			if discardErr := l.state.DiscardSnapshot(rev); discardErr != nil {
				return discardErr
			}
			return err
		}
	}
	l.emitRemaining(userID)
	return l.state.DiscardSnapshot(rev)
}

// DisburseJob is the legacy alias for DisburseFunds.
func (l *Ledger) DisburseJob(caller common.Address, jobID string, recipients []common.Address, amounts []*big.Int) error {
	return l.DisburseFunds(caller, jobID, recipients, amounts)
}

// disburseOne debits the user's balance and asks the token ledger to credit
// the recipient, unwinding the debit if the credit fails.
func (l *Ledger) disburseOne(userID string, recipient common.Address, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	balance, err := l.state.EscrowUserBalance(userID)
	if err != nil {
		return err
	}
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientEscrowBalance
	}
	rev := l.state.Snapshot()
	if err := l.state.SetEscrowUserBalance(userID, new(big.Int).Sub(balance, amt)); err != nil {
		return err
	}
	if err := l.token.Transfer(l.address, recipient, amt); err != nil {
		if revertErr := l.state.RevertToSnapshot(rev); revertErr != nil {
			return fmt.Errorf("escrow: revert disbursal: %w", revertErr)
		}
		return err
	}
	return nil
}

func (l *Ledger) emitRemaining(userID string) {
	remaining, err := l.state.EscrowUserBalance(userID)
	if err != nil {
		return
	}
	l.emit(events.EscrowBalanceUpdated{UserID: userID, Balance: remaining})
}

// --- administration ---

func (l *Ledger) requireOwner(caller common.Address) error {
	owner, err := l.state.EscrowOwner()
	if err != nil {
		return err
	}
	if owner == (common.Address{}) || caller != owner {
		return ErrNotOwner
	}
	return nil
}

// ChangeDisbursalAddress reassigns the disbursal authority. Owner only. The
// null address is accepted, which disables disbursal until reassigned.
func (l *Ledger) ChangeDisbursalAddress(caller, addr common.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if err := l.commit(func() error { return l.state.SetDisbursalAddress(addr) }); err != nil {
		return err
	}
	l.emit(events.ConfigUpdated{Slot: "disbursalAddress", Address: addr})
	return nil
}

// ChangeRenderTokenAddress reassigns the token ledger address fund calls are
// authenticated against. Owner only; the null address is rejected.
func (l *Ledger) ChangeRenderTokenAddress(caller, addr common.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return ErrInvalidAddress
	}
	if err := l.commit(func() error { return l.state.SetRenderTokenAddress(addr) }); err != nil {
		return err
	}
	l.emit(events.ConfigUpdated{Slot: "renderTokenAddress", Address: addr})
	return nil
}

// TransferOwnership reassigns the administrative owner in a single overwrite.
func (l *Ledger) TransferOwnership(caller, newOwner common.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrInvalidAddress
	}
	if err := l.commit(func() error { return l.state.SetEscrowOwner(newOwner) }); err != nil {
		return err
	}
	l.emit(events.ConfigUpdated{Slot: "escrowOwner", Address: newOwner})
	return nil
}
