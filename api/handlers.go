package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/tally"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

type tokenResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    uint8         `json:"decimals"`
	TotalSupply types.Amount  `json:"total_supply"`
	Owner       types.Address `json:"owner"`
}

type balanceResponse struct {
	Address types.Address `json:"address"`
	Balance types.Amount  `json:"balance"`
}

type transferRequest struct {
	To     types.Address `json:"to"`
	Amount *types.Amount `json:"amount"`
}

type transfersResponse struct {
	Transfers []*transfer.Transfer `json:"transfers"`
	Head      uint64               `json:"head"`
}

func (s *Server) getToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tokenResponse{
		ID:          s.ledger.ID().String(),
		Name:        s.ledger.Name(),
		Symbol:      s.ledger.Symbol(),
		Decimals:    s.ledger.Decimals(),
		TotalSupply: s.ledger.TotalSupply(),
		Owner:       s.ledger.Owner(),
	})
}

func (s *Server) getSupply(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]types.Amount{"total_supply": s.ledger.TotalSupply()})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Balance: s.ledger.BalanceOf(addr)})
}

func (s *Server) getHolders(w http.ResponseWriter, _ *http.Request) {
	holders := s.ledger.Holders()
	out := make([]balanceResponse, len(holders))
	for i, h := range holders {
		out[i] = balanceResponse{Address: h.Address, Balance: h.Balance}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req transferRequest
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode body: %w", tally.ErrInvalidInput, err))
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		s.writeError(w, r, fmt.Errorf("%w: body must hold a single object", tally.ErrInvalidInput))
		return
	}
	if req.Amount == nil {
		s.writeError(w, r, fmt.Errorf("%w: amount is required", tally.ErrInvalidInput))
		return
	}

	from := types.Address(s.sender(r))
	evt, err := s.ledger.Transfer(r.Context(), from, req.To, *req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	opts, err := pageOpts(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTransfers(w, r, opts)
}

func (s *Server) listAccountTransfers(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := pageOpts(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Address = addr
	s.writeTransfers(w, r, opts)
}

func (s *Server) writeTransfers(w http.ResponseWriter, r *http.Request, opts transfer.QueryOpts) {
	head := s.ledger.Head()
	if opts.ToSequence == 0 {
		opts.ToSequence = head
	}
	out, err := s.ledger.Query(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*transfer.Transfer{}
	}
	writeJSON(w, http.StatusOK, transfersResponse{Transfers: out, Head: head})
}

// pageOpts reads ?since= and ?limit=.
func pageOpts(r *http.Request) (transfer.QueryOpts, error) {
	opts := transfer.QueryOpts{FromSequence: 1, Limit: DefaultLimit}
	q := r.URL.Query()

	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: since %q", tally.ErrInvalidInput, v)
		}
		opts.FromSequence = max(n, 1)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("%w: limit %q", tally.ErrInvalidInput, v)
		}
		opts.Limit = min(n, MaxLimit)
	}
	return opts, nil
}
