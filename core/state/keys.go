package state

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ethereum/go-ethereum/common"
)

var (
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
	escrowPrefix    = []byte("escrow/user/")

	supplyKeyBytes = []byte("token/supply")
	mintedKeyBytes = []byte("token/minted")
	burnedKeyBytes = []byte("token/burned")

	tokenOwnerKeyBytes     = []byte("config/token-owner")
	escrowContractKeyBytes = []byte("config/escrow-contract")
	bridgeManagerKeyBytes  = []byte("config/bridge-manager")
	escrowOwnerKeyBytes    = []byte("config/escrow-owner")
	disbursalKeyBytes      = []byte("config/disbursal-address")
	renderTokenKeyBytes    = []byte("config/render-token-address")
)

func hashKey(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr common.Address) []byte {
	return hashKey(balancePrefix, addr.Bytes())
}

func allowanceKey(owner, spender common.Address) []byte {
	return hashKey(allowancePrefix, owner.Bytes(), []byte(":"), spender.Bytes())
}

// escrowUserKey hashes the raw external identifier. Identifiers are opaque
// strings and are never assumed enumerable, so only the hash is keyed on.
func escrowUserKey(userID string) []byte {
	return hashKey(escrowPrefix, []byte(userID))
}
