package rpc

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// allowanceMutation is the shared shape of Approve, IncreaseAllowance and
// DecreaseAllowance.
type allowanceMutation func(caller, spender common.Address, amount *big.Int) error

type addressParams struct {
	Address string `json:"address"`
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type transferParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approveParams struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type transferFromParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type holdInEscrowParams struct {
	Caller string `json:"caller"`
	UserID string `json:"userId"`
	Amount string `json:"amount"`
}

type setAddressParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type depositParams struct {
	Caller      string `json:"caller"`
	User        string `json:"user"`
	DepositData string `json:"depositData"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type migrateParams struct {
	Caller string `json:"caller"`
}

type balanceResult struct {
	Balance string `json:"balance"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.token.BalanceOf(addr)
	s.metrics.Observe("token", "balanceOf", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Balance: balance.String()})
}

func (s *Server) handleTokenTotalSupply(w http.ResponseWriter, req *RPCRequest) {
	supply, err := s.token.TotalSupply()
	s.metrics.Observe("token", "totalSupply", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: supply.String()})
}

func (s *Server) handleTokenAllowance(w http.ResponseWriter, req *RPCRequest) {
	var params allowanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	allowance, err := s.token.Allowance(owner, spender)
	s.metrics.Observe("token", "allowance", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: allowance.String()})
}

func (s *Server) handleTokenTransfer(w http.ResponseWriter, req *RPCRequest) {
	var params transferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	// The recipient is parsed leniently: a malformed or empty string maps to
	// the null address so the ledger's InvalidRecipient check stays the
	// single source of truth.
	to, parseErr := parseAddress(params.To)
	if parseErr != nil && strings.TrimSpace(params.To) != "" && strings.TrimSpace(params.To) != "0x0" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
		return
	}
	err = s.token.Transfer(caller, to, amount)
	s.metrics.Observe("token", "transfer", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenApprove(w http.ResponseWriter, req *RPCRequest) {
	s.handleAllowanceMutation(w, req, "approve", s.token.Approve)
}

func (s *Server) handleTokenIncreaseAllowance(w http.ResponseWriter, req *RPCRequest) {
	s.handleAllowanceMutation(w, req, "increaseAllowance", s.token.IncreaseAllowance)
}

func (s *Server) handleTokenDecreaseAllowance(w http.ResponseWriter, req *RPCRequest) {
	s.handleAllowanceMutation(w, req, "decreaseAllowance", s.token.DecreaseAllowance)
}

func (s *Server) handleAllowanceMutation(w http.ResponseWriter, req *RPCRequest, op string, apply allowanceMutation) {
	var params approveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = apply(caller, spender, amount)
	s.metrics.Observe("token", op, err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenTransferFrom(w http.ResponseWriter, req *RPCRequest) {
	var params transferFromParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, parseErr := parseAddress(params.To)
	if parseErr != nil && strings.TrimSpace(params.To) != "" && strings.TrimSpace(params.To) != "0x0" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
		return
	}
	err = s.token.TransferFrom(caller, from, to, amount)
	s.metrics.Observe("token", "transferFrom", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenHoldInEscrow(w http.ResponseWriter, req *RPCRequest) {
	var params holdInEscrowParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.token.HoldInEscrow(caller, params.UserID, amount)
	s.metrics.Observe("token", "holdInEscrow", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenSetEscrowAddress(w http.ResponseWriter, req *RPCRequest) {
	var params setAddressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, parseErr := parseAddress(params.Address)
	if parseErr != nil && strings.TrimSpace(params.Address) != "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
		return
	}
	err = s.token.SetEscrowContractAddress(caller, addr)
	s.metrics.Observe("token", "setEscrowAddress", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.DepositData), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.token.Deposit(caller, user, data)
	s.metrics.Observe("token", "deposit", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleTokenWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	err = s.token.Withdraw(caller, amount)
	s.metrics.Observe("token", "withdraw", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleTokenMigrate(w http.ResponseWriter, req *RPCRequest) {
	var params migrateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.token.Migrate(caller)
	s.metrics.Observe("token", "migrate", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}
