package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/charity-raffle/raffle"
)

func newTestEngine(t *testing.T, duration time.Duration) (*raffle.Engine, *raffle.MockTreasury) {
	t.Helper()

	treasury := raffle.NewMockTreasury()
	treasury.Credit("raffle-pool", 1000)
	treasury.Credit("player-1", 100)

	engine, err := raffle.New(raffle.Config{
		EntranceFee: 100,
		Duration:    duration,
		Funder:      "funder-1",
		Charities:   [raffle.NumCharities]raffle.Address{"c1", "c2", "c3"},
	}, "raffle-pool", treasury, raffle.NewMockCoordinator(), nil)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return engine, treasury
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	engine, _ := newTestEngine(t, time.Hour)
	if _, err := New(engine, "not a schedule", nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestTick_PerformsUpkeepWhenDue(t *testing.T) {
	engine, _ := newTestEngine(t, time.Nanosecond)
	if err := engine.Enter(context.Background(), "player-1", raffle.Charity1, 100); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	s, err := New(engine, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.tick()
	if got := engine.State(); got != raffle.StateCalculating {
		t.Errorf("state = %s, expected %s", got, raffle.StateCalculating)
	}
}

func TestTick_LeavesRaffleAloneWhenNotDue(t *testing.T) {
	engine, _ := newTestEngine(t, time.Hour)
	if err := engine.Enter(context.Background(), "player-1", raffle.Charity1, 100); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	s, err := New(engine, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.tick()
	if got := engine.State(); got != raffle.StateOpen {
		t.Errorf("state = %s, expected %s", got, raffle.StateOpen)
	}
}

func TestStartStop(t *testing.T) {
	engine, _ := newTestEngine(t, time.Hour)
	s, err := New(engine, "@every 1h", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.Start()
	s.Stop()
}
