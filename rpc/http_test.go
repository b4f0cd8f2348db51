package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"rndrledger/core/events"
	"rndrledger/core/state"
	"rndrledger/native/escrow"
	"rndrledger/native/token"
	"rndrledger/storage"
)

var (
	rpcTokenOwner  = common.HexToAddress("0x0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a")
	rpcEscrowOwner = common.HexToAddress("0x0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	rpcBridge      = common.HexToAddress("0x0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c")
	rpcDisburser   = common.HexToAddress("0x0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d")
	rpcTokenAddr   = common.HexToAddress("0x7070707070707070707070707070707070707070")
	rpcEscrowAddr  = common.HexToAddress("0x7171717171717171717171717171717171717171")
	rpcHolder      = common.HexToAddress("0x0101010101010101010101010101010101010101")
)

func newTestServer(t *testing.T, authToken string) (*Server, *token.Ledger) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	seeds := []error{
		manager.SetTokenOwner(rpcTokenOwner),
		manager.SetEscrowOwner(rpcEscrowOwner),
		manager.SetBridgeManager(rpcBridge),
		manager.SetDisbursalAddress(rpcDisburser),
		manager.SetRenderTokenAddress(rpcTokenAddr),
		manager.SetEscrowContract(rpcEscrowAddr),
	}
	for _, err := range seeds {
		if err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}
	log := events.NewLog()
	tokenLedger := token.NewLedger(manager, rpcTokenAddr)
	tokenLedger.SetEmitter(log)
	escrowLedger := escrow.NewLedger(manager, rpcEscrowAddr)
	escrowLedger.SetEmitter(log)
	tokenLedger.SetEscrowFunder(escrowLedger)
	escrowLedger.SetTokenCreditor(tokenLedger)
	return NewServer(tokenLedger, escrowLedger, log, authToken), tokenLedger
}

func seedHolder(t *testing.T, ledger *token.Ledger, amount int64) {
	t.Helper()
	data := common.LeftPadBytes(big.NewInt(amount).Bytes(), 32)
	if _, err := ledger.Deposit(rpcBridge, rpcHolder, data); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func call(t *testing.T, server *Server, method string, params interface{}, headers map[string]string) (*RPCResponse, int) {
	t.Helper()
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		reqBody["params"] = []interface{}{params}
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handle(rec, req)

	var resp RPCResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp, rec.Code
}

func resultField(t *testing.T, resp *RPCResponse, key string) string {
	t.Helper()
	obj, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %T, want object", resp.Result)
	}
	value, ok := obj[key].(string)
	if !ok {
		t.Fatalf("result[%q] = %v, want string", key, obj[key])
	}
	return value
}

func TestTransferRoundTrip(t *testing.T) {
	server, tokenLedger := newTestServer(t, "")
	seedHolder(t, tokenLedger, 100)
	recipient := common.HexToAddress("0x0202020202020202020202020202020202020202")

	resp, status := call(t, server, "token_transfer", map[string]string{
		"caller": rpcHolder.Hex(),
		"to":     recipient.Hex(),
		"amount": "40",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	resp, _ = call(t, server, "token_balanceOf", map[string]string{"address": recipient.Hex()}, nil)
	if got := resultField(t, resp, "balance"); got != "40" {
		t.Fatalf("recipient balance = %s, want 40", got)
	}
	resp, _ = call(t, server, "token_balanceOf", map[string]string{"address": rpcHolder.Hex()}, nil)
	if got := resultField(t, resp, "balance"); got != "60" {
		t.Fatalf("holder balance = %s, want 60", got)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	server, tokenLedger := newTestServer(t, "")
	seedHolder(t, tokenLedger, 10)
	recipient := common.HexToAddress("0x0202020202020202020202020202020202020202")

	// Overdraft maps onto the insufficient-funds code.
	resp, status := call(t, server, "token_transfer", map[string]string{
		"caller": rpcHolder.Hex(),
		"to":     recipient.Hex(),
		"amount": "50",
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	if resp.Error == nil || resp.Error.Code != codeLedgerInsufficient {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeLedgerInsufficient)
	}

	// Null recipient maps onto the precondition code.
	resp, status = call(t, server, "token_transfer", map[string]string{
		"caller": rpcHolder.Hex(),
		"to":     "0x0",
		"amount": "5",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if resp.Error == nil || resp.Error.Code != codeLedgerPrecondition {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeLedgerPrecondition)
	}

	// Non-bridge deposit maps onto the forbidden code.
	resp, status = call(t, server, "token_deposit", map[string]string{
		"caller":      rpcHolder.Hex(),
		"user":        recipient.Hex(),
		"depositData": fmt.Sprintf("0x%064x", 25),
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if resp.Error == nil || resp.Error.Code != codeLedgerForbidden {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeLedgerForbidden)
	}

	// Unknown methods return the standard not-found code.
	resp, _ = call(t, server, "token_selfDestruct", map[string]string{}, nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeMethodNotFound)
	}
}

func TestInvalidParams(t *testing.T) {
	server, _ := newTestServer(t, "")

	// Malformed caller address.
	resp, _ := call(t, server, "token_transfer", map[string]string{
		"caller": "not-hex",
		"to":     rpcHolder.Hex(),
		"amount": "5",
	}, nil)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeInvalidParams)
	}

	// Negative amount.
	resp, _ = call(t, server, "token_transfer", map[string]string{
		"caller": rpcHolder.Hex(),
		"to":     rpcHolder.Hex(),
		"amount": "-5",
	}, nil)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeInvalidParams)
	}

	// Missing params array.
	resp, _ = call(t, server, "token_balanceOf", nil, nil)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeInvalidParams)
	}
}

func TestBearerAuth(t *testing.T) {
	server, _ := newTestServer(t, "sekrit")

	resp, status := call(t, server, "token_totalSupply", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeUnauthorized)
	}

	resp, _ = call(t, server, "token_totalSupply", nil, map[string]string{
		"Authorization": "Bearer wrong",
	})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeUnauthorized)
	}

	resp, status = call(t, server, "token_totalSupply", nil, map[string]string{
		"Authorization": "Bearer sekrit",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if got := resultField(t, resp, "amount"); got != "0" {
		t.Fatalf("supply = %s, want 0", got)
	}
}

func TestEscrowFlowOverRPC(t *testing.T) {
	server, tokenLedger := newTestServer(t, "")
	seedHolder(t, tokenLedger, 100)
	worker := common.HexToAddress("0x0303030303030303030303030303030303030303")

	resp, _ := call(t, server, "token_holdInEscrow", map[string]string{
		"caller": rpcHolder.Hex(),
		"userId": "job1",
		"amount": "40",
	}, nil)
	if resp.Error != nil {
		t.Fatalf("hold: %+v", resp.Error)
	}

	resp, _ = call(t, server, "escrow_userBalance", map[string]string{"userId": "job1"}, nil)
	if got := resultField(t, resp, "balance"); got != "40" {
		t.Fatalf("escrowed balance = %s, want 40", got)
	}

	resp, _ = call(t, server, "escrow_disburseFunds", map[string]interface{}{
		"caller":     rpcDisburser.Hex(),
		"userId":     "job1",
		"recipients": []string{worker.Hex()},
		"amounts":    []string{"25"},
	}, nil)
	if resp.Error != nil {
		t.Fatalf("disburse: %+v", resp.Error)
	}

	resp, _ = call(t, server, "escrow_userBalance", map[string]string{"userId": "job1"}, nil)
	if got := resultField(t, resp, "balance"); got != "15" {
		t.Fatalf("escrowed balance = %s, want 15", got)
	}
	resp, _ = call(t, server, "token_balanceOf", map[string]string{"address": worker.Hex()}, nil)
	if got := resultField(t, resp, "balance"); got != "25" {
		t.Fatalf("worker balance = %s, want 25", got)
	}
}

func TestListEvents(t *testing.T) {
	server, tokenLedger := newTestServer(t, "")
	seedHolder(t, tokenLedger, 100)

	resp, _ := call(t, server, "ledger_listEvents", nil, nil)
	if resp.Error != nil {
		t.Fatalf("listEvents: %+v", resp.Error)
	}
	entries, ok := resp.Result.([]interface{})
	if !ok {
		t.Fatalf("result = %T, want array", resp.Result)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 mint notification", len(entries))
	}
	entry, ok := entries[0].(map[string]interface{})
	if !ok {
		t.Fatalf("entry = %T, want object", entries[0])
	}
	if entry["type"] != events.TypeTokenMinted {
		t.Fatalf("entry type = %v, want %s", entry["type"], events.TypeTokenMinted)
	}
}

func TestParseRejectsMalformedBody(t *testing.T) {
	server, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not-json")))
	rec := httptest.NewRecorder()
	server.Handle(rec, req)

	var resp RPCResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeParseError)
	}

	// GET is rejected outright.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	server.Handle(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
