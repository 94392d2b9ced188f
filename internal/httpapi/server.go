// Package httpapi exposes the raffle engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/charity-raffle/internal/httputil"
	"github.com/R3E-Network/charity-raffle/internal/metrics"
	"github.com/R3E-Network/charity-raffle/internal/middleware"
	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

// Server routes HTTP requests to the raffle engine.
type Server struct {
	engine  *raffle.Engine
	store   raffle.Store
	metrics *metrics.Metrics
	log     *logger.Logger
	router  *mux.Router
}

// New builds the server and its routes. The store and metrics may be nil.
func New(engine *raffle.Engine, store raffle.Store, m *metrics.Metrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	s := &Server{
		engine:  engine,
		store:   store,
		metrics: m,
		log:     log,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Logging(s.log))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/entries", s.handleEnter).Methods(http.MethodPost)
	r.HandleFunc("/upkeep", s.handleCheckUpkeep).Methods(http.MethodGet)
	r.HandleFunc("/upkeep", s.handlePerformUpkeep).Methods(http.MethodPost)
	r.HandleFunc("/randomness/fulfill", s.handleFulfill).Methods(http.MethodPost)
	r.HandleFunc("/escrow/fund", s.handleFund).Methods(http.MethodPost)
	r.HandleFunc("/escrow/release", s.handleRelease).Methods(http.MethodPost)

	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/entrants", s.handleEntrants).Methods(http.MethodGet)
	r.HandleFunc("/tallies", s.handleTallies).Methods(http.MethodGet)
	r.HandleFunc("/winners", s.handleWinners).Methods(http.MethodGet)
	r.HandleFunc("/cycles", s.handleCycles).Methods(http.MethodGet)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// writeEngineError maps engine error kinds onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, raffle.ErrInsufficientFee),
		errors.Is(err, raffle.ErrUnknownCharity),
		errors.Is(err, raffle.ErrUnknownEntrant),
		errors.Is(err, raffle.ErrBadWordBatch):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, raffle.ErrNotFunder):
		httputil.Forbidden(w, err.Error())
	case errors.Is(err, raffle.ErrRaffleNotOpen),
		errors.Is(err, raffle.ErrRaffleNotClosed),
		errors.Is(err, raffle.ErrUpkeepNotNeeded),
		errors.Is(err, raffle.ErrMatchNotFunded),
		errors.Is(err, raffle.ErrNoCharityWinner),
		errors.Is(err, raffle.ErrUnknownRequest):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, raffle.ErrCharityTransfer),
		errors.Is(err, raffle.ErrJackpotTransferFailed),
		errors.Is(err, raffle.ErrFundingTransferFailed),
		errors.Is(err, raffle.ErrDonationMatchFailed):
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		httputil.InternalError(w, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  s.engine.State(),
		"time":   time.Now().UTC(),
	})
}

type enterRequest struct {
	Entrant string `json:"entrant"`
	Charity int    `json:"charity"`
	Fee     int64  `json:"fee"`
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	err := s.engine.Enter(r.Context(), raffle.Address(req.Entrant), raffle.CharityID(req.Charity), req.Fee)
	if err != nil {
		if s.metrics != nil {
			s.metrics.EntriesRejected.Inc()
		}
		s.writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Entries.Inc()
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"entrant":  req.Entrant,
		"charity":  req.Charity,
		"entrants": s.engine.EntrantCount(),
	})
}

func (s *Server) handleCheckUpkeep(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.CheckUpkeep(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (s *Server) handlePerformUpkeep(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.engine.PerformUpkeep(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Upkeeps.Inc()
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"request_id": requestID,
		"state":      s.engine.State(),
	})
}

type fulfillRequest struct {
	RequestID string   `json:"request_id"`
	Words     []string `json:"words"`
}

// handleFulfill accepts a manual randomness delivery, primarily for
// operational recovery when the coordinator loop is disabled. Words are
// decimal strings so 256-bit values survive JSON.
func (s *Server) handleFulfill(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	words := make([]*big.Int, len(req.Words))
	for i, raw := range req.Words {
		word, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			httputil.BadRequest(w, "word "+raw+" is not a decimal integer")
			return
		}
		words[i] = word
	}

	result, err := s.engine.FulfillRandomWords(r.Context(), req.RequestID, words)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Draws.Inc()
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type escrowRequest struct {
	Funder string `json:"funder"`
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req escrowRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.FundDonationMatch(r.Context(), raffle.Address(req.Funder)); err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.EscrowFunded.Inc()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"funded": true})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req escrowRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.ReleaseDonationMatch(r.Context(), raffle.Address(req.Funder)); err != nil {
		s.writeEngineError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.EscrowReleased.Inc()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"released": true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	balance, err := s.engine.JackpotBalance(r.Context())
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"state":        s.engine.State(),
		"entrants":     s.engine.EntrantCount(),
		"entrance_fee": s.engine.EntranceFee(),
		"duration":     s.engine.Duration().String(),
		"balance":      balance,
		"match_funded": s.engine.MatchFunded(),
	})
}

func (s *Server) handleEntrants(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entrants": s.engine.Entrants(),
	})
}

func (s *Server) handleTallies(w http.ResponseWriter, r *http.Request) {
	tallies := s.engine.Tallies()
	charities := s.engine.Charities()
	out := make([]map[string]any, raffle.NumCharities)
	for i := range tallies {
		out[i] = map[string]any{
			"charity": i + 1,
			"address": charities[i],
			"tally":   tallies[i],
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tallies": out})
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"recent_winner":    s.engine.RecentWinner(),
		"highest_donation": s.engine.HighestDonation(),
		"match_funded":     s.engine.MatchFunded(),
	}
	if id, addr, ok := s.engine.CharityWinner(); ok {
		body["charity_winner"] = id
		body["charity_address"] = addr
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"cycles": []raffle.Cycle{}})
		return
	}
	cycles, err := s.store.ListCycles(r.Context(), 50)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

// ListenAndServe runs the HTTP server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
