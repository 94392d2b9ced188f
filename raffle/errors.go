package raffle

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInsufficientFee       = errors.New("entrance fee below minimum")
	ErrRaffleNotOpen         = errors.New("raffle is not open")
	ErrRaffleNotClosed       = errors.New("raffle is not closed")
	ErrUnknownCharity        = errors.New("unknown charity")
	ErrUnknownEntrant        = errors.New("entrant address required")
	ErrNotFunder             = errors.New("caller is not the funder")
	ErrMatchNotFunded        = errors.New("donation match has not been funded")
	ErrNoCharityWinner       = errors.New("no charity winner recorded")
	ErrUnknownRequest        = errors.New("delivery does not match the outstanding randomness request")
	ErrBadWordBatch          = errors.New("malformed random word batch")
	ErrUpkeepNotNeeded       = errors.New("upkeep not needed")
	ErrCharityTransfer       = errors.New("charity transfer failed")
	ErrJackpotTransferFailed = errors.New("jackpot transfer failed")
	ErrFundingTransferFailed = errors.New("funding-to-match transfer failed")
	ErrDonationMatchFailed   = errors.New("donation match transfer failed")
)

// UpkeepNotNeededError reports a failed closure-guard check together with
// the values the guard saw, so callers can decide whether to retry later.
type UpkeepNotNeededError struct {
	Balance      int64
	EntrantCount int
	State        State
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: balance=%d entrants=%d state=%s",
		e.Balance, e.EntrantCount, e.State)
}

// Unwrap lets errors.Is(err, ErrUpkeepNotNeeded) match.
func (e *UpkeepNotNeededError) Unwrap() error { return ErrUpkeepNotNeeded }

// CharityTransferError reports a rejected entry-fee transfer to a charity.
type CharityTransferError struct {
	Charity CharityID
	Err     error
}

func (e *CharityTransferError) Error() string {
	return fmt.Sprintf("charity %d transfer failed: %v", e.Charity, e.Err)
}

// Unwrap exposes both the transfer cause and the ErrCharityTransfer kind.
func (e *CharityTransferError) Unwrap() []error { return []error{ErrCharityTransfer, e.Err} }
