package raffle

import "context"

// Store defines the persistence interface for completed cycle history.
type Store interface {
	SaveCycle(ctx context.Context, cycle Cycle) (Cycle, error)
	GetCycle(ctx context.Context, cycleID string) (Cycle, error)
	ListCycles(ctx context.Context, limit int) ([]Cycle, error)
}
