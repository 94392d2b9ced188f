// Package coordinator provides a local randomness source for the raffle
// engine. Requests are queued and answered asynchronously, exactly once,
// by a fulfiller goroutine that draws words from crypto/rand — the same
// request/callback shape as an external verifiable-randomness service,
// without the proof.
package coordinator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

// wordBits is the width of each generated random word.
const wordBits = 256

// queueSize bounds the pending request channel. The engine holds at most
// one outstanding request, so any backlog indicates a misbehaving caller.
const queueSize = 16

type request struct {
	id    string
	seed  string
	depth uint16
	count int
}

// Coordinator queues randomness requests and delivers word batches to a
// consumer.
type Coordinator struct {
	log      *logger.Logger
	consumer raffle.Fulfiller

	// Delay simulates confirmation depth before delivery.
	Delay time.Duration

	pending chan request
	stop    chan struct{}
	once    sync.Once
	wordMax *big.Int
}

// New creates a coordinator. AttachConsumer must be called before Run.
func New(log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewDefault("coordinator")
	}
	return &Coordinator{
		log:     log,
		pending: make(chan request, queueSize),
		stop:    make(chan struct{}),
		wordMax: new(big.Int).Lsh(big.NewInt(1), wordBits),
	}
}

// AttachConsumer binds the delivery callback target.
func (c *Coordinator) AttachConsumer(f raffle.Fulfiller) {
	c.consumer = f
}

// RequestRandomWords queues a request and returns its ID immediately. The
// words are delivered later through the consumer callback.
func (c *Coordinator) RequestRandomWords(ctx context.Context, seed string, confirmations uint16, count int) (string, error) {
	if count <= 0 {
		return "", fmt.Errorf("word count must be positive")
	}
	req := request{
		id:    uuid.New().String(),
		seed:  seed,
		depth: confirmations,
		count: count,
	}

	select {
	case c.pending <- req:
	default:
		return "", fmt.Errorf("request queue full")
	}

	c.log.WithField("request_id", req.id).
		WithField("count", count).
		WithField("confirmations", confirmations).
		Info("randomness requested")
	return req.id, nil
}

// Run processes pending requests until the context is canceled or Close is
// called.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case req := <-c.pending:
			c.fulfill(ctx, req)
		}
	}
}

// Close stops the fulfiller loop.
func (c *Coordinator) Close() {
	c.once.Do(func() { close(c.stop) })
}

// fulfill generates the word batch and delivers it to the consumer.
func (c *Coordinator) fulfill(ctx context.Context, req request) {
	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.Delay):
		}
	}
	if c.consumer == nil {
		c.log.WithField("request_id", req.id).Warn("no consumer attached, dropping request")
		return
	}

	words := make([]*big.Int, req.count)
	for i := range words {
		w, err := rand.Int(rand.Reader, c.wordMax)
		if err != nil {
			c.log.WithError(err).WithField("request_id", req.id).Error("random word generation failed")
			return
		}
		words[i] = w
	}

	result, err := c.consumer.FulfillRandomWords(ctx, req.id, words)
	if err != nil {
		c.log.WithError(err).WithField("request_id", req.id).Warn("delivery rejected")
		return
	}
	c.log.WithField("request_id", req.id).
		WithField("winner", result.Winner).
		WithField("charity_winner", result.CharityWinner).
		Info("randomness delivered")
}
