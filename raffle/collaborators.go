package raffle

import (
	"context"
	"math/big"
)

// Treasury is the value-transfer collaborator. Transfers are synchronous;
// a rejection must surface as an error with no partial commitment.
type Treasury interface {
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to Address, amount int64) error
	// Balance reports the current balance of an account.
	Balance(ctx context.Context, addr Address) (int64, error)
}

// Coordinator is the randomness collaborator. A request is answered exactly
// once by an asynchronous FulfillRandomWords callback carrying the request ID.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, seed string, confirmations uint16, count int) (string, error)
}

// Fulfiller receives random word deliveries. The engine implements it; the
// coordinator calls it back exactly once per request.
type Fulfiller interface {
	FulfillRandomWords(ctx context.Context, requestID string, words []*big.Int) (DrawResult, error)
}

// Publisher broadcasts engine events as observable side effects.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload map[string]any) error
}

// PublisherFunc allows a function to satisfy Publisher.
type PublisherFunc func(ctx context.Context, topic string, payload map[string]any) error

// Publish calls the underlying function.
func (f PublisherFunc) Publish(ctx context.Context, topic string, payload map[string]any) error {
	return f(ctx, topic, payload)
}
