package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stockTrader/internal/analytics"
	"stockTrader/internal/domain"
	"stockTrader/internal/utils"
)

type createUserRequest struct {
	Login        string `json:"login"`
	PasswordHash []byte `json:"password_hash"` // base64
	Salt         []byte `json:"salt"`          // base64
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type openAccountRequest struct {
	UserID        int64        `json:"user_id"`
	InitialAmount domain.Money `json:"initial_amount"`
}

type cashRequest struct {
	Amount domain.Money `json:"amount"`
}

type buyRequest struct {
	Symbol string       `json:"symbol"`
	Shares int64        `json:"shares"`
	Price  domain.Money `json:"price"`
}

type tradeRequest struct {
	TradeType domain.TradeType `json:"trade_type"`
	Shares    int64            `json:"shares"`
	Price     domain.Money     `json:"price"`
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" {
		badRequest(w, "login is required")
		return
	}

	user := &domain.User{
		Login:        req.Login,
		PasswordHash: req.PasswordHash,
		Salt:         req.Salt,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CreatedAt:    time.Now().UTC(),
	}
	id, err := s.users.CreateUser(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "CreateUser", err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Result: map[string]int64{"id": id}})
}

// POST /accounts
func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.svc.OpenAccount(r.Context(), req.UserID, req.InitialAmount)
	if err != nil {
		s.writeError(w, r, "OpenAccount", err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Result: map[string]int64{"id": id}})
}

// GET /accounts/{id}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := s.viewer.View(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "View", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: view})
}

// DELETE /accounts/{id}
func (s *Server) handleCloseAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.CloseAccount(r.Context(), id); err != nil {
		s.writeError(w, r, "CloseAccount", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// PATCH /accounts/{id}/cash/{action}
func (s *Server) handleAdjustCash(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req cashRequest
	if !decode(w, r, &req) {
		return
	}
	action := domain.CashAction(strings.ToLower(chi.URLParam(r, "action")))

	res, err := s.svc.AdjustCash(r.Context(), id, action, req.Amount)
	if err != nil {
		s.writeError(w, r, "AdjustCash", err)
		return
	}
	writeOutcome(w, res.Outcome, toAccountResponse(res.Account))
}

// POST /accounts/{id}/positions
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req buyRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.svc.Buy(r.Context(), id, req.Symbol, req.Shares, req.Price)
	if err != nil {
		s.writeError(w, r, "Buy", err)
		return
	}
	writeOutcome(w, res.Outcome, tradeResult(res))
}

// PUT /accounts/{id}/positions/{positionID}
func (s *Server) handleTradePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	positionID, ok := pathID(w, r, "positionID")
	if !ok {
		return
	}
	var req tradeRequest
	if !decode(w, r, &req) {
		return
	}

	switch req.TradeType {
	case domain.Buy:
		res, err := s.svc.AddShares(r.Context(), id, positionID, req.Shares, req.Price)
		if err != nil {
			s.writeError(w, r, "AddShares", err)
			return
		}
		writeOutcome(w, res.Outcome, tradeResult(res))
	case domain.Sell:
		res, err := s.svc.Sell(r.Context(), id, positionID, req.Shares, req.Price)
		if err != nil {
			s.writeError(w, r, "Sell", err)
			return
		}
		writeOutcome(w, res.Outcome, tradeResult(res))
	default:
		badRequest(w, "trade_type must be buy or sell")
	}
}

// GET /accounts/{id}/trades[?format=csv]
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	trades, err := s.svc.Trades(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "Trades", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=trades_"+strconv.FormatInt(id, 10)+".csv")
		if err := utils.WriteTrades(w, trades); err != nil {
			s.logger.Error(r.Context(), err, "Failed to write trades CSV", map[string]interface{}{"accountID": id})
		}
		return
	}

	out := make([]*tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: out})
}

// GET /accounts/{id}/activity
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	trades, err := s.svc.Trades(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "Trades", err)
		return
	}
	report := analytics.AnalyzeActivity(trades, s.calc)
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: toActivityResponse(report)})
}

// --- Request Helpers ---

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
