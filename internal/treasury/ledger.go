// Package treasury provides an in-process account ledger implementing the
// engine's value-transfer collaborator. It stands in for the host ledger in
// single-node deployments and tests.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

// Errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownAccount    = errors.New("unknown account")
)

// Ledger is a mutex-guarded balance table.
type Ledger struct {
	mu       sync.RWMutex
	balances map[raffle.Address]int64
	log      *logger.Logger
}

// New creates an empty ledger.
func New(log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	return &Ledger{
		balances: make(map[raffle.Address]int64),
		log:      log,
	}
}

// Credit seeds an account with funds. Used at bootstrap to fund the jackpot
// pool and the funder account.
func (l *Ledger) Credit(addr raffle.Address, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
	return nil
}

// Transfer moves amount from one account to another. It commits fully or
// not at all.
func (l *Ledger) Transfer(ctx context.Context, from, to raffle.Address, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if from == "" || to == "" {
		return ErrUnknownAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientFunds, from, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount

	l.log.WithField("from", from).
		WithField("to", to).
		WithField("amount", amount).
		Debug("transfer executed")
	return nil
}

// Balance reports the current balance of an account. Unknown accounts have
// a zero balance.
func (l *Ledger) Balance(ctx context.Context, addr raffle.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}
