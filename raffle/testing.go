package raffle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTreasury provides an in-memory value-transfer collaborator for tests.
type MockTreasury struct {
	mu        sync.Mutex
	balances  map[Address]int64
	transfers []MockTransfer

	// FailTransferTo rejects any transfer whose destination is in the set.
	FailTransferTo map[Address]bool
	// FailAll rejects every transfer when set.
	FailAll bool
}

// MockTransfer records one executed transfer.
type MockTransfer struct {
	From   Address
	To     Address
	Amount int64
}

// NewMockTreasury creates an empty mock treasury.
func NewMockTreasury() *MockTreasury {
	return &MockTreasury{
		balances:       make(map[Address]int64),
		FailTransferTo: make(map[Address]bool),
	}
}

// Credit seeds an account balance.
func (t *MockTreasury) Credit(addr Address, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[addr] += amount
}

// Transfer moves funds between accounts, honoring the failure knobs.
func (t *MockTreasury) Transfer(ctx context.Context, from, to Address, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailAll || t.FailTransferTo[to] {
		return fmt.Errorf("transfer rejected")
	}
	if amount < 0 {
		return fmt.Errorf("negative amount")
	}
	if t.balances[from] < amount {
		return fmt.Errorf("insufficient funds in %s", from)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	t.transfers = append(t.transfers, MockTransfer{From: from, To: to, Amount: amount})
	return nil
}

// Balance reports an account balance.
func (t *MockTreasury) Balance(ctx context.Context, addr Address) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[addr], nil
}

// Transfers returns a copy of the executed transfer log.
func (t *MockTreasury) Transfers() []MockTransfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MockTransfer, len(t.transfers))
	copy(out, t.transfers)
	return out
}

// MockCoordinator records randomness requests and hands back request IDs.
// Tests deliver words by calling the engine's FulfillRandomWords directly.
type MockCoordinator struct {
	mu       sync.Mutex
	requests []MockRequest

	// Err, when set, is returned from RequestRandomWords.
	Err error
}

// MockRequest records one randomness request.
type MockRequest struct {
	ID            string
	Seed          string
	Confirmations uint16
	Count         int
}

// NewMockCoordinator creates an empty mock coordinator.
func NewMockCoordinator() *MockCoordinator {
	return &MockCoordinator{}
}

// RequestRandomWords records the request and returns a fresh ID.
func (c *MockCoordinator) RequestRandomWords(ctx context.Context, seed string, confirmations uint16, count int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return "", c.Err
	}
	req := MockRequest{
		ID:            uuid.New().String(),
		Seed:          seed,
		Confirmations: confirmations,
		Count:         count,
	}
	c.requests = append(c.requests, req)
	return req.ID, nil
}

// Requests returns a copy of the recorded requests.
func (c *MockCoordinator) Requests() []MockRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MockRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// LastRequest returns the most recent request, if any.
func (c *MockCoordinator) LastRequest() (MockRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return MockRequest{}, false
	}
	return c.requests[len(c.requests)-1], true
}

// MemoryStore provides an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu     sync.RWMutex
	cycles map[string]Cycle
	order  []string
}

// NewMemoryStore creates a new in-memory cycle store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cycles: make(map[string]Cycle)}
}

func (s *MemoryStore) SaveCycle(ctx context.Context, cycle Cycle) (Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	if cycle.ClosedAt.IsZero() {
		cycle.ClosedAt = time.Now().UTC()
	}
	s.cycles[cycle.ID] = cycle
	s.order = append(s.order, cycle.ID)
	return cycle, nil
}

func (s *MemoryStore) GetCycle(ctx context.Context, cycleID string) (Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cycle, ok := s.cycles[cycleID]
	if !ok {
		return Cycle{}, fmt.Errorf("cycle not found: %s", cycleID)
	}
	return cycle, nil
}

func (s *MemoryStore) ListCycles(ctx context.Context, limit int) ([]Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Cycle
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.cycles[s.order[i]])
	}
	return result, nil
}

// MemoryPublisher captures published events for assertions.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// PublishedEvent is one captured event.
type PublishedEvent struct {
	Topic   string
	Payload map[string]any
}

// NewMemoryPublisher creates an empty capturing publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, topic string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Payload: payload})
	return nil
}

// Events returns a copy of the captured events.
func (p *MemoryPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsByTopic returns captured events matching the topic.
func (p *MemoryPublisher) EventsByTopic(topic string) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedEvent
	for _, ev := range p.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
