package raffle

import (
	"context"
	"fmt"
)

// FundDonationMatch moves highestDonationCount x entranceFee from the
// funder into engine custody and marks the match as funded. Only the
// configured funder may call it, and only once the raffle is closed.
func (e *Engine) FundDonationMatch(ctx context.Context, caller Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Funder {
		return ErrNotFunder
	}
	if e.state != StateClosed {
		return ErrRaffleNotClosed
	}
	if e.charityWinner == 0 {
		return ErrNoCharityWinner
	}

	amount := e.highestDonation * e.cfg.EntranceFee
	if err := e.treasury.Transfer(ctx, e.cfg.Funder, e.account, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrFundingTransferFailed, err)
	}

	e.highestDonation = 0
	e.matchFunded = true

	e.log.WithField("amount", amount).Info("donation match funded")
	e.publish(ctx, EventMatchFunded, map[string]any{"amount": amount})

	return nil
}

// ReleaseDonationMatch transfers the engine's entire balance to the charity
// winner and clears the winner reference and the funded flag. It requires a
// prior successful FundDonationMatch. A rejected transfer leaves all state
// in place so the funder can retry the whole operation.
func (e *Engine) ReleaseDonationMatch(ctx context.Context, caller Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Funder {
		return ErrNotFunder
	}
	if e.state != StateClosed {
		return ErrRaffleNotClosed
	}
	if !e.matchFunded {
		return ErrMatchNotFunded
	}

	balance, err := e.treasury.Balance(ctx, e.account)
	if err != nil {
		return fmt.Errorf("match balance: %w", err)
	}
	to := e.cfg.Charities[e.charityWinner-1]
	if err := e.treasury.Transfer(ctx, e.account, to, balance); err != nil {
		return fmt.Errorf("%w: %v", ErrDonationMatchFailed, err)
	}

	e.charityWinner = 0
	e.matchFunded = false

	e.log.WithField("charity", to).WithField("amount", balance).Info("donation match released")
	e.publish(ctx, EventMatchReleased, map[string]any{
		"charity": string(to),
		"amount":  balance,
	})

	return nil
}
