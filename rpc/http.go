package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rndrledger/core/events"
	"rndrledger/native/escrow"
	"rndrledger/native/token"
	"rndrledger/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000

	codeLedgerForbidden    = -32041
	codeLedgerInsufficient = -32042
	codeLedgerPrecondition = -32043
)

// Server exposes both ledgers over JSON-RPC. Callers are request parameters:
// the deployment trusts its gateway for caller authentication, mirroring the
// serialized-transaction execution model where identity is established
// upstream of the ledgers.
type Server struct {
	token     *token.Ledger
	escrow    *escrow.Ledger
	log       *events.Log
	authToken string
	metrics   *observability.LedgerMetrics
}

// NewServer wires the RPC surface over the two ledgers and the notification
// log. An empty authToken disables bearer authentication.
func NewServer(tok *token.Ledger, esc *escrow.Ledger, log *events.Log, authToken string) *Server {
	return &Server{
		token:     tok,
		escrow:    esc,
		log:       log,
		authToken: strings.TrimSpace(authToken),
		metrics:   observability.Ledger(),
	}
}

// Start serves the JSON-RPC endpoint on addr, with prometheus metrics under
// /metrics. It blocks.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Handle)
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid bearer token"}
	}
	return nil
}

// Handle dispatches a single JSON-RPC request. Exposed for tests driving the
// server through httptest.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", err.Error())
		return
	}
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}

	switch req.Method {
	case "token_balanceOf":
		s.handleTokenBalanceOf(w, &req)
	case "token_totalSupply":
		s.handleTokenTotalSupply(w, &req)
	case "token_allowance":
		s.handleTokenAllowance(w, &req)
	case "token_transfer":
		s.handleTokenTransfer(w, &req)
	case "token_approve":
		s.handleTokenApprove(w, &req)
	case "token_increaseAllowance":
		s.handleTokenIncreaseAllowance(w, &req)
	case "token_decreaseAllowance":
		s.handleTokenDecreaseAllowance(w, &req)
	case "token_transferFrom":
		s.handleTokenTransferFrom(w, &req)
	case "token_holdInEscrow":
		s.handleTokenHoldInEscrow(w, &req)
	case "token_setEscrowAddress":
		s.handleTokenSetEscrowAddress(w, &req)
	case "token_deposit":
		s.handleTokenDeposit(w, &req)
	case "token_withdraw":
		s.handleTokenWithdraw(w, &req)
	case "token_migrate":
		s.handleTokenMigrate(w, &req)
	case "escrow_userBalance":
		s.handleEscrowUserBalance(w, &req)
	case "escrow_disburseFunds":
		s.handleEscrowDisburse(w, &req)
	case "escrow_changeDisbursalAddress":
		s.handleEscrowChangeDisbursal(w, &req)
	case "escrow_changeRenderTokenAddress":
		s.handleEscrowChangeRenderToken(w, &req)
	case "ledger_listEvents":
		s.handleListEvents(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

// decodeParams unmarshals the single parameter object the dispatch expects.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// parseAmount accepts a non-negative decimal string. Zero is valid; the
// ledgers themselves decide whether a zero amount means anything.
func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// ledgerError maps taxonomy errors onto distinguishable RPC error codes so a
// harness can branch on the failure reason.
func ledgerError(w http.ResponseWriter, id interface{}, err error) {
	code := codeServerError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, token.ErrNotOwner),
		errors.Is(err, token.ErrNotAuthorized),
		errors.Is(err, escrow.ErrNotOwner),
		errors.Is(err, escrow.ErrNotAuthorized):
		code = codeLedgerForbidden
		status = http.StatusForbidden
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, escrow.ErrInsufficientEscrowBalance),
		errors.Is(err, escrow.ErrNoBalance),
		errors.Is(err, token.ErrNoBalance):
		code = codeLedgerInsufficient
		status = http.StatusConflict
	case errors.Is(err, token.ErrInvalidRecipient),
		errors.Is(err, token.ErrInvalidAddress),
		errors.Is(err, escrow.ErrInvalidAddress),
		errors.Is(err, escrow.ErrLengthMismatch),
		errors.Is(err, token.ErrEscrowNotConfigured),
		errors.Is(err, token.ErrLegacyNotConfigured),
		errors.Is(err, token.ErrArithmeticOverflow),
		errors.Is(err, escrow.ErrArithmeticOverflow):
		code = codeLedgerPrecondition
		status = http.StatusBadRequest
	}
	writeError(w, status, id, code, err.Error(), nil)
}
