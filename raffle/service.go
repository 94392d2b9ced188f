package raffle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/R3E-Network/charity-raffle/pkg/logger"
)

// Engine owns all mutable raffle state. Every operation runs to completion
// under a single mutex, so callers observe a strict total order and each
// operation commits fully or not at all.
type Engine struct {
	cfg       Config
	account   Address
	treasury  Treasury
	coord     Coordinator
	publisher Publisher
	store     Store
	log       *logger.Logger

	mu              sync.Mutex
	state           State
	startedAt       time.Time
	entrants        []Address
	tallies         [NumCharities]int64
	pendingRequest  string
	cycleNumber     int64
	recentWinner    Address
	charityWinner   CharityID // 0 = unset
	highestDonation int64
	matchFunded     bool

	now func() time.Time
}

// New constructs a raffle engine. The account is the engine's own ledger
// account holding the jackpot pool and, later, the escrowed match.
func New(cfg Config, account Address, treasury Treasury, coord Coordinator, log *logger.Logger) (*Engine, error) {
	if cfg.EntranceFee <= 0 {
		cfg.EntranceFee = DefaultEntranceFee
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.RequestConfirmations == 0 {
		cfg.RequestConfirmations = DefaultRequestConfirmations
	}
	if cfg.Funder == "" {
		return nil, fmt.Errorf("funder address required")
	}
	for i, c := range cfg.Charities {
		if c == "" {
			return nil, fmt.Errorf("charity %d address required", i+1)
		}
	}
	if account == "" {
		return nil, fmt.Errorf("engine account required")
	}
	if treasury == nil {
		return nil, fmt.Errorf("treasury required")
	}
	if coord == nil {
		return nil, fmt.Errorf("coordinator required")
	}
	if log == nil {
		log = logger.NewDefault("raffle")
	}

	e := &Engine{
		cfg:      cfg,
		account:  account,
		treasury: treasury,
		coord:    coord,
		publisher: PublisherFunc(func(context.Context, string, map[string]any) error {
			return nil
		}),
		log:         log,
		state:       StateOpen,
		cycleNumber: 1,
		now:         time.Now,
	}
	e.startedAt = e.now().UTC()
	return e, nil
}

// WithPublisher sets the event publisher.
func (e *Engine) WithPublisher(p Publisher) {
	if p != nil {
		e.publisher = p
	}
}

// WithStore sets the cycle-history store.
func (e *Engine) WithStore(s Store) {
	e.store = s
}

// FulfillRandomWords is the one-shot randomness delivery callback. It must
// carry the single outstanding request ID and exactly WordsPerDraw words.
// It selects the jackpot winner, resolves the charity winner, pays out the
// jackpot, clears the entrant list and tallies, and closes the raffle.
//
// All decisions are computed before the external jackpot transfer and state
// is committed only after the transfer succeeds, so a rejected transfer
// leaves the engine unchanged and no caller can observe stale tallies.
func (e *Engine) FulfillRandomWords(ctx context.Context, requestID string, words []*big.Int) (DrawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCalculating || e.pendingRequest == "" || requestID != e.pendingRequest {
		return DrawResult{}, ErrUnknownRequest
	}
	if len(words) != WordsPerDraw {
		return DrawResult{}, fmt.Errorf("%w: expected %d words, got %d", ErrBadWordBatch, WordsPerDraw, len(words))
	}
	for i, w := range words {
		if w == nil || w.Sign() < 0 {
			return DrawResult{}, fmt.Errorf("%w: word %d", ErrBadWordBatch, i)
		}
	}

	// the upkeep guard guarantees entrants; an empty list here means the
	// invariant was broken elsewhere
	if len(e.entrants) == 0 {
		return DrawResult{}, fmt.Errorf("no entrants recorded for request %s", requestID)
	}

	idx := winnerIndex(words[0], len(e.entrants))
	winner := e.entrants[idx]

	tallies := e.tallies
	charity, highest := resolveCharity(tallies, words[1:])

	jackpot, err := e.treasury.Balance(ctx, e.account)
	if err != nil {
		return DrawResult{}, fmt.Errorf("jackpot balance: %w", err)
	}
	if err := e.treasury.Transfer(ctx, e.account, winner, jackpot); err != nil {
		return DrawResult{}, fmt.Errorf("%w: %v", ErrJackpotTransferFailed, err)
	}

	now := e.now().UTC()
	result := DrawResult{
		RequestID:       requestID,
		Winner:          winner,
		WinnerIndex:     idx,
		Jackpot:         jackpot,
		CharityWinner:   charity,
		CharityAddress:  e.cfg.Charities[charity-1],
		HighestDonation: highest,
		Tallies:         tallies,
		EntrantCount:    len(e.entrants),
		DrawnAt:         now,
	}

	e.recentWinner = winner
	e.charityWinner = charity
	e.highestDonation = highest
	e.entrants = nil
	e.tallies = [NumCharities]int64{}
	e.pendingRequest = ""
	e.state = StateClosed

	if e.store != nil {
		cycle := Cycle{
			Number:          e.cycleNumber,
			Winner:          winner,
			CharityWinner:   charity,
			HighestDonation: highest,
			Jackpot:         jackpot,
			EntrantCount:    result.EntrantCount,
			Tallies:         tallies,
			StartedAt:       e.startedAt,
			ClosedAt:        now,
		}
		if _, err := e.store.SaveCycle(ctx, cycle); err != nil {
			e.log.WithError(err).WithField("cycle", e.cycleNumber).Warn("failed to persist cycle history")
		}
	}

	e.log.WithField("request_id", requestID).
		WithField("winner", winner).
		WithField("charity_winner", charity).
		WithField("jackpot", jackpot).
		Info("raffle closed")
	e.publish(ctx, EventWinnerPicked, map[string]any{
		"winner":  string(winner),
		"jackpot": jackpot,
		"index":   idx,
	})
	e.publish(ctx, EventCharityWinner, map[string]any{
		"charity":          int(charity),
		"address":          string(result.CharityAddress),
		"highest_donation": highest,
	})

	return result, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// EntrantCount returns the number of recorded entrants.
func (e *Engine) EntrantCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entrants)
}

// Entrants returns a copy of the entrant sequence in entry order.
func (e *Engine) Entrants() []Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Address, len(e.entrants))
	copy(out, e.entrants)
	return out
}

// Tally returns the donation count for a charity.
func (e *Engine) Tally(c CharityID) int64 {
	if !c.Valid() {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tallies[c-1]
}

// Tallies returns all three donation counts.
func (e *Engine) Tallies() [NumCharities]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tallies
}

// RecentWinner returns the last jackpot winner, if any.
func (e *Engine) RecentWinner() Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recentWinner
}

// CharityWinner returns the current cycle's charity winner, if resolved.
func (e *Engine) CharityWinner() (CharityID, Address, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.charityWinner == 0 {
		return 0, "", false
	}
	return e.charityWinner, e.cfg.Charities[e.charityWinner-1], true
}

// HighestDonation returns the recorded highest donation count.
func (e *Engine) HighestDonation() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highestDonation
}

// MatchFunded reports whether the donation match is currently escrowed.
func (e *Engine) MatchFunded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchFunded
}

// EntranceFee returns the configured minimum entrance fee.
func (e *Engine) EntranceFee() int64 { return e.cfg.EntranceFee }

// Duration returns the configured entry window.
func (e *Engine) Duration() time.Duration { return e.cfg.Duration }

// Funder returns the configured escrow funder identity.
func (e *Engine) Funder() Address { return e.cfg.Funder }

// Charities returns the three fixed beneficiary accounts.
func (e *Engine) Charities() [NumCharities]Address { return e.cfg.Charities }

// Account returns the engine's own ledger account.
func (e *Engine) Account() Address { return e.account }

// JackpotBalance returns the engine account's current balance.
func (e *Engine) JackpotBalance(ctx context.Context) (int64, error) {
	return e.treasury.Balance(ctx, e.account)
}

// publish sends an event, logging delivery failures without aborting the
// triggering operation.
func (e *Engine) publish(ctx context.Context, topic string, payload map[string]any) {
	if err := e.publisher.Publish(ctx, topic, payload); err != nil {
		e.log.WithError(err).WithField("topic", topic).Warn("event publish failed")
	}
}

// drawSeed derives the seed for a randomness request from the cycle state.
func (e *Engine) drawSeed() string {
	data := fmt.Sprintf("%d-%d-%d-%d-%d-%d",
		e.cycleNumber,
		len(e.entrants),
		e.tallies[0], e.tallies[1], e.tallies[2],
		e.now().UnixNano(),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
