package raffle

import "context"

// Enter validates and records an entrant. The fee is routed in full to the
// chosen charity before any bookkeeping, so a rejected transfer leaves no
// tally increment and no appended entrant.
func (e *Engine) Enter(ctx context.Context, entrant Address, choice CharityID, fee int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fee < e.cfg.EntranceFee {
		return ErrInsufficientFee
	}
	if e.state != StateOpen {
		return ErrRaffleNotOpen
	}
	if !choice.Valid() {
		return ErrUnknownCharity
	}
	if entrant == "" {
		return ErrUnknownEntrant
	}

	to := e.cfg.Charities[choice-1]
	if err := e.treasury.Transfer(ctx, entrant, to, fee); err != nil {
		return &CharityTransferError{Charity: choice, Err: err}
	}

	e.tallies[choice-1]++
	e.entrants = append(e.entrants, entrant)

	e.log.WithField("entrant", entrant).
		WithField("charity", choice).
		WithField("fee", fee).
		Debug("entrant recorded")
	e.publish(ctx, EventEntered, map[string]any{
		"entrant": string(entrant),
		"charity": int(choice),
		"fee":     fee,
	})

	return nil
}
