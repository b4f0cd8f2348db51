package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"rndrledger/storage"
)

// Manager provides keyed access to both ledgers' persisted state: the balance
// and allowance tables, the escrowed user-balance table, supply counters and
// the singleton configuration slots. Keys are keccak256-hashed, values are
// RLP encoded.
//
// Writes are journaled so a composite operation can be unwound as one unit;
// see Snapshot and RevertToSnapshot. Manager is not safe for concurrent use —
// entry points execute under serialized-transaction semantics.
type Manager struct {
	db      storage.Database
	journal []journalEntry
}

type journalEntry struct {
	key  []byte
	prev []byte
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state manager unavailable")
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) set(key, value []byte) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager unavailable")
	}
	prev, err := m.get(key)
	if err != nil {
		return err
	}
	m.journal = append(m.journal, journalEntry{key: key, prev: prev})
	return m.db.Put(key, value)
}

// Snapshot marks the current journal position. A later RevertToSnapshot with
// the returned revision restores every key written since.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot rewinds state to the given revision by replaying the write
// journal backwards. Keys that did not exist before are restored to empty,
// which the accessors treat as zero.
func (m *Manager) RevertToSnapshot(rev int) error {
	if rev < 0 || rev > len(m.journal) {
		return fmt.Errorf("state: invalid snapshot revision %d", rev)
	}
	for i := len(m.journal) - 1; i >= rev; i-- {
		entry := m.journal[i]
		if err := m.db.Put(entry.key, entry.prev); err != nil {
			return err
		}
	}
	m.journal = m.journal[:rev]
	return nil
}

// DiscardSnapshot commits every write made since the revision by dropping its
// undo entries. The outermost unit of work must call this once it has
// succeeded; otherwise the journal grows with committed history for the
// lifetime of the manager.
func (m *Manager) DiscardSnapshot(rev int) error {
	if rev < 0 || rev > len(m.journal) {
		return fmt.Errorf("state: invalid snapshot revision %d", rev)
	}
	m.journal = m.journal[:rev]
	return nil
}

// --- amount tables ---

func (m *Manager) readAmount(key []byte) (*big.Int, error) {
	data, err := m.get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) writeAmount(key []byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative amount")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.set(key, encoded)
}

// Balance returns the token balance for the account. Missing entries default
// to zero; accounts are created implicitly on first credit.
func (m *Manager) Balance(addr common.Address) (*big.Int, error) {
	return m.readAmount(balanceKey(addr))
}

// SetBalance overwrites the token balance for the account.
func (m *Manager) SetBalance(addr common.Address, amount *big.Int) error {
	return m.writeAmount(balanceKey(addr), amount)
}

// Allowance returns the (owner, spender) allowance, zero when unset.
func (m *Manager) Allowance(owner, spender common.Address) (*big.Int, error) {
	return m.readAmount(allowanceKey(owner, spender))
}

// SetAllowance overwrites the (owner, spender) allowance.
func (m *Manager) SetAllowance(owner, spender common.Address, amount *big.Int) error {
	return m.writeAmount(allowanceKey(owner, spender), amount)
}

// EscrowUserBalance returns the escrowed balance held under the opaque user
// identifier, zero when unset.
func (m *Manager) EscrowUserBalance(userID string) (*big.Int, error) {
	return m.readAmount(escrowUserKey(userID))
}

// SetEscrowUserBalance overwrites the escrowed balance for the identifier.
// Entries persist at zero after full disbursal.
func (m *Manager) SetEscrowUserBalance(userID string, amount *big.Int) error {
	return m.writeAmount(escrowUserKey(userID), amount)
}

// --- supply counters ---

// TotalSupply returns the circulating supply (minted minus burned).
func (m *Manager) TotalSupply() (*big.Int, error) {
	return m.readAmount(hashKey(supplyKeyBytes))
}

// SetTotalSupply overwrites the circulating supply.
func (m *Manager) SetTotalSupply(amount *big.Int) error {
	return m.writeAmount(hashKey(supplyKeyBytes), amount)
}

// TotalMinted returns the cumulative amount minted by the deposit path.
func (m *Manager) TotalMinted() (*big.Int, error) {
	return m.readAmount(hashKey(mintedKeyBytes))
}

// SetTotalMinted overwrites the cumulative minted counter.
func (m *Manager) SetTotalMinted(amount *big.Int) error {
	return m.writeAmount(hashKey(mintedKeyBytes), amount)
}

// TotalBurned returns the cumulative amount burned by the withdraw path.
func (m *Manager) TotalBurned() (*big.Int, error) {
	return m.readAmount(hashKey(burnedKeyBytes))
}

// SetTotalBurned overwrites the cumulative burned counter.
func (m *Manager) SetTotalBurned(amount *big.Int) error {
	return m.writeAmount(hashKey(burnedKeyBytes), amount)
}

// --- configuration slots ---

func (m *Manager) readAddress(key []byte) (common.Address, error) {
	data, err := m.get(key)
	if err != nil {
		return common.Address{}, err
	}
	if len(data) == 0 {
		return common.Address{}, nil
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

func (m *Manager) writeAddress(key []byte, addr common.Address) error {
	encoded, err := rlp.EncodeToBytes(addr.Bytes())
	if err != nil {
		return err
	}
	return m.set(key, encoded)
}

// TokenOwner returns the token ledger's administrative owner.
func (m *Manager) TokenOwner() (common.Address, error) {
	return m.readAddress(hashKey(tokenOwnerKeyBytes))
}

// SetTokenOwner reassigns the token ledger's administrative owner.
func (m *Manager) SetTokenOwner(addr common.Address) error {
	return m.writeAddress(hashKey(tokenOwnerKeyBytes), addr)
}

// EscrowContract returns the escrow contract address the token ledger
// forwards held funds to.
func (m *Manager) EscrowContract() (common.Address, error) {
	return m.readAddress(hashKey(escrowContractKeyBytes))
}

// SetEscrowContract overwrites the escrow contract address slot.
func (m *Manager) SetEscrowContract(addr common.Address) error {
	return m.writeAddress(hashKey(escrowContractKeyBytes), addr)
}

// BridgeManager returns the identity allowed to mint via the deposit path.
func (m *Manager) BridgeManager() (common.Address, error) {
	return m.readAddress(hashKey(bridgeManagerKeyBytes))
}

// SetBridgeManager overwrites the bridge manager slot.
func (m *Manager) SetBridgeManager(addr common.Address) error {
	return m.writeAddress(hashKey(bridgeManagerKeyBytes), addr)
}

// EscrowOwner returns the escrow ledger's administrative owner.
func (m *Manager) EscrowOwner() (common.Address, error) {
	return m.readAddress(hashKey(escrowOwnerKeyBytes))
}

// SetEscrowOwner reassigns the escrow ledger's administrative owner.
func (m *Manager) SetEscrowOwner(addr common.Address) error {
	return m.writeAddress(hashKey(escrowOwnerKeyBytes), addr)
}

// DisbursalAddress returns the identity allowed to trigger disbursals.
func (m *Manager) DisbursalAddress() (common.Address, error) {
	return m.readAddress(hashKey(disbursalKeyBytes))
}

// SetDisbursalAddress overwrites the disbursal authority slot.
func (m *Manager) SetDisbursalAddress(addr common.Address) error {
	return m.writeAddress(hashKey(disbursalKeyBytes), addr)
}

// RenderTokenAddress returns the token ledger address the escrow accepts
// fund calls from.
func (m *Manager) RenderTokenAddress() (common.Address, error) {
	return m.readAddress(hashKey(renderTokenKeyBytes))
}

// SetRenderTokenAddress overwrites the accepted token ledger address slot.
func (m *Manager) SetRenderTokenAddress(addr common.Address) error {
	return m.writeAddress(hashKey(renderTokenKeyBytes), addr)
}
