package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLogRecordsInOrder(t *testing.T) {
	log := NewLog()
	from := common.HexToAddress("0x0101010101010101010101010101010101010101")
	to := common.HexToAddress("0x0202020202020202020202020202020202020202")

	log.Emit(Transfer{From: from, To: to, Amount: big.NewInt(5)})
	log.Emit(EscrowBalanceUpdated{UserID: "job1", Balance: big.NewInt(20)})

	entries := log.Entries()
	if len(entries) != 2 || log.Len() != 2 {
		t.Fatalf("len = %d/%d, want 2", len(entries), log.Len())
	}
	if entries[0].Type != TypeTokenTransfer {
		t.Fatalf("entries[0].Type = %s", entries[0].Type)
	}
	if entries[0].Attributes["amount"] != "5" {
		t.Fatalf("amount = %q", entries[0].Attributes["amount"])
	}
	if entries[1].Type != TypeEscrowBalanceUpdated || entries[1].Attributes["userId"] != "job1" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
}

func TestEntriesReturnsCopies(t *testing.T) {
	log := NewLog()
	log.Emit(EscrowBalanceUpdated{UserID: "job1", Balance: big.NewInt(10)})

	entries := log.Entries()
	entries[0].Attributes["balance"] = "tampered"

	fresh := log.Entries()
	if fresh[0].Attributes["balance"] != "10" {
		t.Fatalf("stored entry mutated: %+v", fresh[0])
	}
}

func TestEmitNilSafe(t *testing.T) {
	log := NewLog()
	log.Emit(nil)
	if log.Len() != 0 {
		t.Fatalf("nil event recorded")
	}
	NoopEmitter{}.Emit(Transfer{})
}
