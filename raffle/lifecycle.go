package raffle

import (
	"context"
	"fmt"
)

// CheckUpkeep evaluates the closure guard: the raffle is ready to close iff
// the state is Open, the configured duration has elapsed, at least one
// entrant is recorded, and the jackpot balance is positive. It is a pure
// query and never mutates state.
func (e *Engine) CheckUpkeep(ctx context.Context) (UpkeepStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.upkeepStatus(ctx)
}

// PerformUpkeep validates the closure guard and transitions Open to
// Calculating, requesting one batch of random words from the coordinator.
// The raffle refuses new entries until the batch is delivered. A guard
// violation fails with UpkeepNotNeededError carrying the observed values.
func (e *Engine) PerformUpkeep(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.upkeepStatus(ctx)
	if err != nil {
		return "", err
	}
	if !status.Needed {
		return "", &UpkeepNotNeededError{
			Balance:      status.Balance,
			EntrantCount: status.EntrantCount,
			State:        status.State,
		}
	}

	requestID, err := e.coord.RequestRandomWords(ctx, e.drawSeed(), e.cfg.RequestConfirmations, WordsPerDraw)
	if err != nil {
		return "", fmt.Errorf("request random words: %w", err)
	}

	e.state = StateCalculating
	e.pendingRequest = requestID

	e.log.WithField("request_id", requestID).
		WithField("entrants", status.EntrantCount).
		WithField("balance", status.Balance).
		Info("raffle closing, randomness requested")
	e.publish(ctx, EventUpkeep, map[string]any{
		"request_id": requestID,
		"entrants":   status.EntrantCount,
	})

	return requestID, nil
}

// upkeepStatus evaluates the guard. Callers must hold e.mu.
func (e *Engine) upkeepStatus(ctx context.Context) (UpkeepStatus, error) {
	balance, err := e.treasury.Balance(ctx, e.account)
	if err != nil {
		return UpkeepStatus{}, fmt.Errorf("engine balance: %w", err)
	}

	status := UpkeepStatus{
		State:        e.state,
		Elapsed:      e.now().UTC().Sub(e.startedAt),
		EntrantCount: len(e.entrants),
		Balance:      balance,
	}
	status.Needed = e.state == StateOpen &&
		status.Elapsed >= e.cfg.Duration &&
		status.EntrantCount > 0 &&
		status.Balance > 0
	return status, nil
}
