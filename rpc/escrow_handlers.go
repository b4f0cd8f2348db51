package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type userBalanceParams struct {
	UserID string `json:"userId"`
}

type disburseParams struct {
	Caller     string   `json:"caller"`
	UserID     string   `json:"userId"`
	Recipients []string `json:"recipients"`
	Amounts    []string `json:"amounts"`
}

func (s *Server) handleEscrowUserBalance(w http.ResponseWriter, req *RPCRequest) {
	var params userBalanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.escrow.UserBalance(params.UserID)
	s.metrics.Observe("escrow", "userBalance", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Balance: balance.String()})
}

func (s *Server) handleEscrowDisburse(w http.ResponseWriter, req *RPCRequest) {
	var params disburseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	recipients := make([]common.Address, len(params.Recipients))
	for i, raw := range params.Recipients {
		// Lenient like transfer recipients: malformed entries become the null
		// address and fail inside the ledger with the taxonomy error.
		addr, parseErr := parseAddress(raw)
		if parseErr != nil && strings.TrimSpace(raw) != "" && strings.TrimSpace(raw) != "0x0" {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
			return
		}
		recipients[i] = addr
	}
	amounts := make([]*big.Int, len(params.Amounts))
	for i, raw := range params.Amounts {
		amount, parseErr := parseAmount(raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
			return
		}
		amounts[i] = amount
	}
	err = s.escrow.DisburseFunds(caller, params.UserID, recipients, amounts)
	s.metrics.Observe("escrow", "disburseFunds", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleEscrowChangeDisbursal(w http.ResponseWriter, req *RPCRequest) {
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
	// The null disbursal address is a legal configuration that disables
	// disbursal, so an empty string is accepted here.
	addr, parseErr := parseAddress(params.Address)
	if parseErr != nil && strings.TrimSpace(params.Address) != "" && strings.TrimSpace(params.Address) != "0x0" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", parseErr.Error())
		return
	}
	err = s.escrow.ChangeDisbursalAddress(caller, addr)
	s.metrics.Observe("escrow", "changeDisbursalAddress", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleEscrowChangeRenderToken(w http.ResponseWriter, req *RPCRequest) {
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
	err = s.escrow.ChangeRenderTokenAddress(caller, addr)
	s.metrics.Observe("escrow", "changeRenderTokenAddress", err)
	if err != nil {
		ledgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleListEvents(w http.ResponseWriter, req *RPCRequest) {
	if s.log == nil {
		writeResult(w, req.ID, []interface{}{})
		return
	}
	writeResult(w, req.ID, s.log.Entries())
}
