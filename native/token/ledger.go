package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"rndrledger/core/events"
)

// State is the slice of persisted ledger state the token engine operates on.
// The engine never touches the escrow ledger's user-balance table; the only
// cross-ledger mutation path is the EscrowFunder capability.
type State interface {
	Balance(addr common.Address) (*big.Int, error)
	SetBalance(addr common.Address, amount *big.Int) error
	Allowance(owner, spender common.Address) (*big.Int, error)
	SetAllowance(owner, spender common.Address, amount *big.Int) error
	TotalSupply() (*big.Int, error)
	SetTotalSupply(amount *big.Int) error
	TotalMinted() (*big.Int, error)
	SetTotalMinted(amount *big.Int) error
	TotalBurned() (*big.Int, error)
	SetTotalBurned(amount *big.Int) error
	TokenOwner() (common.Address, error)
	SetTokenOwner(addr common.Address) error
	EscrowContract() (common.Address, error)
	SetEscrowContract(addr common.Address) error
	BridgeManager() (common.Address, error)
	Snapshot() int
	RevertToSnapshot(rev int) error
	DiscardSnapshot(rev int) error
}

// EscrowFunder is the capability handle for the escrow ledger's fund entry
// point. Holding an interface rather than the concrete ledger keeps the
// mutual token<->escrow call graph free of a package cycle.
type EscrowFunder interface {
	FundUser(caller common.Address, userID string, amount *big.Int) error
}

// LegacyLedger is the capability handle for the superseded balance source the
// one-time migration path pulls from. TransferFrom consumes the (from,
// spender) allowance on the legacy side.
type LegacyLedger interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// Ledger is the token engine: balances, allowances, bridge mint/burn and the
// privileged hand-off into escrow. All amounts carry 256-bit unsigned
// semantics; arithmetic fails on overflow rather than wrapping.
type Ledger struct {
	state   State
	emitter events.Emitter
	address common.Address
	funder  EscrowFunder
	legacy  LegacyLedger
}

// NewLedger creates a token ledger identified by its own contract address.
// The address is what the escrow ledger authenticates fund calls against.
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

// SetEscrowFunder wires the escrow ledger's fund entry point.
func (l *Ledger) SetEscrowFunder(funder EscrowFunder) { l.funder = funder }

// SetLegacyLedger wires the superseded balance source for Migrate.
func (l *Ledger) SetLegacyLedger(legacy LegacyLedger) { l.legacy = legacy }

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
		return nil, fmt.Errorf("token: negative amount")
	}
	if amount.BitLen() > 256 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Set(amount), nil
}

// checkedAdd returns a+b, failing once the sum leaves 256-bit range.
func checkedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.BitLen() > 256 {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}

// commit runs fn under a snapshot. On error every state write made inside is
// unwound; on success the snapshot is discarded so the journal does not
// retain committed history.
func (l *Ledger) commit(fn func() error) error {
	rev := l.state.Snapshot()
	if err := fn(); err != nil {
		if revertErr := l.state.RevertToSnapshot(rev); revertErr != nil {
			return fmt.Errorf("token: revert: %w", revertErr)
		}
		return err
	}
	return l.state.DiscardSnapshot(rev)
}

// --- reads ---

// BalanceOf returns the balance for the account. Pure read, never fails for
// unknown accounts.
func (l *Ledger) BalanceOf(addr common.Address) (*big.Int, error) {
	return l.state.Balance(addr)
}

// Allowance returns the amount spender may still move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) (*big.Int, error) {
	return l.state.Allowance(owner, spender)
}

// TotalSupply returns the circulating supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.state.TotalSupply()
}

// --- transfers ---

// move debits from and credits to without emitting. Callers emit once the
// whole enclosing operation has succeeded. Every check runs before the first
// write so a failed move never leaves a partial debit.
func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	fromBal, err := l.state.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to {
		// Nets out to no change; the caller still emits.
		return nil
	}
	toBal, err := l.state.Balance(to)
	if err != nil {
		return err
	}
	credited, err := checkedAdd(toBal, amount)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.state.SetBalance(to, credited)
}

// Transfer moves amount from caller to the recipient. Zero-amount transfers
// succeed and still emit a notification.
func (l *Ledger) Transfer(caller, to common.Address, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if err := l.commit(func() error { return l.move(caller, to, amt) }); err != nil {
		return err
	}
	l.emit(events.Transfer{From: caller, To: to, Amount: amt})
	return nil
}

// TransferFrom spends the (from, caller) allowance. The allowance is checked
// before the balance so the failure reasons stay distinguishable.
func (l *Ledger) TransferFrom(caller, from, to common.Address, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	allowance, err := l.state.Allowance(from, caller)
	if err != nil {
		return err
	}
	if allowance.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	balance, err := l.state.Balance(from)
	if err != nil {
		return err
	}
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	err = l.commit(func() error {
		if err := l.state.SetAllowance(from, caller, new(big.Int).Sub(allowance, amt)); err != nil {
			return err
		}
		return l.move(from, to, amt)
	})
	if err != nil {
		return err
	}
	l.emit(events.Transfer{From: from, To: to, Amount: amt})
	return nil
}

// --- allowances ---

// Approve unconditionally overwrites the (caller, spender) allowance.
// Overwriting one nonzero value with another is allowed; the front-running
// window that opens is an accepted property of the approve design.
func (l *Ledger) Approve(caller, spender common.Address, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return ErrInvalidAddress
	}
	if err := l.commit(func() error { return l.state.SetAllowance(caller, spender, amt) }); err != nil {
		return err
	}
	l.emit(events.Approval{Owner: caller, Spender: spender, Amount: amt})
	return nil
}

// IncreaseAllowance raises the (caller, spender) allowance by delta.
func (l *Ledger) IncreaseAllowance(caller, spender common.Address, delta *big.Int) error {
	d, err := normalizeAmount(delta)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return ErrInvalidAddress
	}
	current, err := l.state.Allowance(caller, spender)
	if err != nil {
		return err
	}
	raised, err := checkedAdd(current, d)
	if err != nil {
		return err
	}
	if err := l.commit(func() error { return l.state.SetAllowance(caller, spender, raised) }); err != nil {
		return err
	}
	l.emit(events.Approval{Owner: caller, Spender: spender, Amount: raised})
	return nil
}

// DecreaseAllowance lowers the (caller, spender) allowance by delta,
// saturating at zero. A delta larger than the current allowance is not an
// error; the allowance simply floors.
func (l *Ledger) DecreaseAllowance(caller, spender common.Address, delta *big.Int) error {
	d, err := normalizeAmount(delta)
	if err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return ErrInvalidAddress
	}
	current, err := l.state.Allowance(caller, spender)
	if err != nil {
		return err
	}
	lowered := new(big.Int).Sub(current, d)
	if lowered.Sign() < 0 {
		lowered = big.NewInt(0)
	}
	if err := l.commit(func() error { return l.state.SetAllowance(caller, spender, lowered) }); err != nil {
		return err
	}
	l.emit(events.Approval{Owner: caller, Spender: spender, Amount: lowered})
	return nil
}

// --- escrow hand-off ---

// HoldInEscrow moves amount from the caller to the escrow contract's token
// balance and credits the escrow ledger's sub-balance for userID. Both steps
// commit together or not at all: a failed fund call unwinds the debit.
func (l *Ledger) HoldInEscrow(caller common.Address, userID string, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	escrowAddr, err := l.state.EscrowContract()
	if err != nil {
		return err
	}
	if escrowAddr == (common.Address{}) || l.funder == nil {
		return ErrEscrowNotConfigured
	}
	err = l.commit(func() error {
		if err := l.move(caller, escrowAddr, amt); err != nil {
			return err
		}
		return l.funder.FundUser(l.address, userID, amt)
	})
	if err != nil {
		return err
	}
	l.emit(events.Transfer{From: caller, To: escrowAddr, Amount: amt})
	l.emit(events.EscrowHold{Sender: caller, UserID: userID, Amount: amt})
	return nil
}

// --- bridge deposit / withdraw ---

// DecodeDepositAmount parses the bridge payload: a single 32-byte big-endian
// unsigned integer, matching the root-chain deposit encoding.
func DecodeDepositAmount(depositData []byte) (*big.Int, error) {
	if len(depositData) != 32 {
		return nil, fmt.Errorf("token: deposit data must be 32 bytes, got %d", len(depositData))
	}
	amount := new(uint256.Int).SetBytes(depositData)
	return amount.ToBig(), nil
}

// Deposit mints the bridged amount to the user's balance. Only the configured
// bridge manager may invoke it.
func (l *Ledger) Deposit(caller, user common.Address, depositData []byte) (*big.Int, error) {
	manager, err := l.state.BridgeManager()
	if err != nil {
		return nil, err
	}
	if manager == (common.Address{}) || caller != manager {
		return nil, ErrNotAuthorized
	}
	if user == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	amount, err := DecodeDepositAmount(depositData)
	if err != nil {
		return nil, err
	}
	var supply *big.Int
	err = l.commit(func() error {
		supply, err = l.mint(user, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.emit(events.Minted{Account: user, Amount: amount, Supply: supply})
	return amount, nil
}

// mint credits the account and raises the supply and cumulative-minted
// counters. The new supply is returned for the notification.
func (l *Ledger) mint(account common.Address, amount *big.Int) (*big.Int, error) {
	supply, err := l.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	newSupply, err := checkedAdd(supply, amount)
	if err != nil {
		return nil, err
	}
	minted, err := l.state.TotalMinted()
	if err != nil {
		return nil, err
	}
	newMinted, err := checkedAdd(minted, amount)
	if err != nil {
		return nil, err
	}
	balance, err := l.state.Balance(account)
	if err != nil {
		return nil, err
	}
	credited, err := checkedAdd(balance, amount)
	if err != nil {
		return nil, err
	}
	if err := l.state.SetTotalSupply(newSupply); err != nil {
		return nil, err
	}
	if err := l.state.SetTotalMinted(newMinted); err != nil {
		return nil, err
	}
	if err := l.state.SetBalance(account, credited); err != nil {
		return nil, err
	}
	return newSupply, nil
}

// Withdraw burns amount from the caller's own balance, releasing it for exit
// on the root chain.
func (l *Ledger) Withdraw(caller common.Address, amount *big.Int) error {
	amt, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	balance, err := l.state.Balance(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.state.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Cmp(amt) < 0 {
		return fmt.Errorf("token: burn exceeds supply")
	}
	burned, err := l.state.TotalBurned()
	if err != nil {
		return err
	}
	newBurned, err := checkedAdd(burned, amt)
	if err != nil {
		return err
	}
	newSupply := new(big.Int).Sub(supply, amt)
	err = l.commit(func() error {
		if err := l.state.SetBalance(caller, new(big.Int).Sub(balance, amt)); err != nil {
			return err
		}
		if err := l.state.SetTotalSupply(newSupply); err != nil {
			return err
		}
		return l.state.SetTotalBurned(newBurned)
	})
	if err != nil {
		return err
	}
	l.emit(events.Burned{Account: caller, Amount: amt, Supply: newSupply})
	return nil
}

// --- administration ---

func (l *Ledger) requireOwner(caller common.Address) error {
	owner, err := l.state.TokenOwner()
	if err != nil {
		return err
	}
	if owner == (common.Address{}) || caller != owner {
		return ErrNotOwner
	}
	return nil
}

// SetEscrowContractAddress points the hold-in-escrow path at a new escrow
// contract. Owner only; the null address is rejected.
func (l *Ledger) SetEscrowContractAddress(caller, addr common.Address) error {
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return ErrInvalidAddress
	}
	if err := l.commit(func() error { return l.state.SetEscrowContract(addr) }); err != nil {
		return err
	}
	l.emit(events.ConfigUpdated{Slot: "escrowContract", Address: addr})
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
	if err := l.commit(func() error { return l.state.SetTokenOwner(newOwner) }); err != nil {
		return err
	}
	l.emit(events.ConfigUpdated{Slot: "tokenOwner", Address: newOwner})
	return nil
}
