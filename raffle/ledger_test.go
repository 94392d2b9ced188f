package raffle

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestEnter_TallyAndSequence(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)

	for i := 0; i < 5; i++ {
		enter(t, eng, treasury, Address(fmt.Sprintf("player-%d", i)), Charity2)
	}

	if eng.EntrantCount() != 5 {
		t.Errorf("expected 5 entrants, got %d", eng.EntrantCount())
	}
	if got := eng.Tally(Charity2); got != 5 {
		t.Errorf("charity 2 tally = %d, expected 5", got)
	}
	if got := eng.Tally(Charity1) + eng.Tally(Charity3); got != 0 {
		t.Errorf("other tallies = %d, expected 0", got)
	}

	entrants := eng.Entrants()
	for i, e := range entrants {
		if e != Address(fmt.Sprintf("player-%d", i)) {
			t.Errorf("entrant %d = %s, insertion order not preserved", i, e)
		}
	}

	if bal, _ := treasury.Balance(ctx, testCharity2); bal != 5*testFee {
		t.Errorf("charity 2 balance = %d, expected %d", bal, 5*testFee)
	}
}

func TestEnter_DuplicatesPermitted(t *testing.T) {
	eng, treasury, _ := newTestEngine(t)

	enter(t, eng, treasury, "repeat-player", Charity1)
	enter(t, eng, treasury, "repeat-player", Charity3)

	if eng.EntrantCount() != 2 {
		t.Errorf("expected 2 entries for the same entrant, got %d", eng.EntrantCount())
	}
}

func TestEnter_InsufficientFee(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)
	treasury.Credit("cheap-player", testFee)

	err := eng.Enter(ctx, "cheap-player", Charity1, testFee-1)
	if !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee, got %v", err)
	}
	if eng.EntrantCount() != 0 {
		t.Error("entrant recorded despite insufficient fee")
	}
}

func TestEnter_OverpaymentAccepted(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)
	treasury.Credit("generous-player", 3*testFee)

	if err := eng.Enter(ctx, "generous-player", Charity1, 3*testFee); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	// the full fee is routed to the charity, not just the minimum
	if bal, _ := treasury.Balance(ctx, testCharity1); bal != 3*testFee {
		t.Errorf("charity balance = %d, expected %d", bal, 3*testFee)
	}
	if got := eng.Tally(Charity1); got != 1 {
		t.Errorf("tally = %d, expected 1", got)
	}
}

func TestEnter_UnknownCharity(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)
	treasury.Credit("player-1", testFee)

	for _, choice := range []CharityID{0, 4, -1} {
		if err := eng.Enter(ctx, "player-1", choice, testFee); !errors.Is(err, ErrUnknownCharity) {
			t.Errorf("charity %d: expected ErrUnknownCharity, got %v", choice, err)
		}
	}
}

func TestEnter_NotOpen(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)
	treasury.Credit("player-1", 10*testFee)

	for _, state := range []State{StateCalculating, StateClosed} {
		eng.mu.Lock()
		eng.state = state
		eng.mu.Unlock()

		// rejected regardless of how generous the fee is
		err := eng.Enter(ctx, "player-1", Charity1, 10*testFee)
		if !errors.Is(err, ErrRaffleNotOpen) {
			t.Errorf("state %s: expected ErrRaffleNotOpen, got %v", state, err)
		}
	}
}

func TestEnter_CharityTransferFailure(t *testing.T) {
	ctx := context.Background()
	eng, treasury, _ := newTestEngine(t)
	treasury.Credit("player-1", testFee)
	treasury.FailTransferTo[testCharity3] = true

	err := eng.Enter(ctx, "player-1", Charity3, testFee)
	if !errors.Is(err, ErrCharityTransfer) {
		t.Fatalf("expected ErrCharityTransfer, got %v", err)
	}
	var cte *CharityTransferError
	if !errors.As(err, &cte) {
		t.Fatal("expected CharityTransferError")
	}
	if cte.Charity != Charity3 {
		t.Errorf("error charity = %d, expected %d", cte.Charity, Charity3)
	}

	// no partial state: neither tally nor entrant list changed
	if eng.EntrantCount() != 0 {
		t.Error("entrant recorded despite failed transfer")
	}
	if got := eng.Tally(Charity3); got != 0 {
		t.Errorf("tally incremented despite failed transfer: %d", got)
	}
}
