// Package raffle implements a charity raffle engine: entrance fees are routed
// as donations to one of three fixed beneficiaries, a jackpot winner is drawn
// from externally delivered random words, the charity with the highest
// donation tally wins a matching donation, and the match is escrowed and
// released by an authorized funder.
package raffle

import "time"

// State represents the lifecycle state of the raffle.
type State string

const (
	StateOpen        State = "open"
	StateCalculating State = "calculating"
	StateClosed      State = "closed"
)

// Address identifies a party account on the host ledger.
type Address string

// CharityID indexes one of the three fixed beneficiaries.
type CharityID int

const (
	Charity1 CharityID = 1
	Charity2 CharityID = 2
	Charity3 CharityID = 3
)

// NumCharities is the fixed number of beneficiaries.
const NumCharities = 3

// WordsPerDraw is the size of a random word batch: word 0 selects the
// jackpot winner, words 1-3 perturb tied donation tallies.
const WordsPerDraw = 4

// Valid reports whether the charity identifier names one of the three
// fixed beneficiaries.
func (c CharityID) Valid() bool {
	return c >= Charity1 && c <= Charity3
}

// Config holds the raffle parameters fixed at construction.
type Config struct {
	// EntranceFee is the minimum fee per entry, in the smallest unit.
	EntranceFee int64
	// Duration is how long entry stays open before closure is permitted.
	Duration time.Duration
	// Funder is the only identity allowed to drive the escrow flow.
	Funder Address
	// Charities are the three fixed beneficiary accounts, in order.
	Charities [NumCharities]Address
	// RequestConfirmations is the confirmation depth passed to the
	// randomness coordinator.
	RequestConfirmations uint16
}

// Default configuration values.
const (
	DefaultEntranceFee          = 10_000_000 // 0.1 GAS
	DefaultDuration             = 24 * time.Hour
	DefaultRequestConfirmations = 3
)

// DrawResult describes the outcome of a completed raffle cycle.
type DrawResult struct {
	RequestID       string              `json:"request_id"`
	Winner          Address             `json:"winner"`
	WinnerIndex     int                 `json:"winner_index"`
	Jackpot         int64               `json:"jackpot"`
	CharityWinner   CharityID           `json:"charity_winner"`
	CharityAddress  Address             `json:"charity_address"`
	HighestDonation int64               `json:"highest_donation"`
	Tallies         [NumCharities]int64 `json:"tallies"`
	EntrantCount    int                 `json:"entrant_count"`
	DrawnAt         time.Time           `json:"drawn_at"`
}

// Cycle is the persisted history record of one completed raffle cycle.
type Cycle struct {
	ID              string              `json:"id" db:"id"`
	Number          int64               `json:"number" db:"number"`
	Winner          Address             `json:"winner" db:"winner"`
	CharityWinner   CharityID           `json:"charity_winner" db:"charity_winner"`
	HighestDonation int64               `json:"highest_donation" db:"highest_donation"`
	Jackpot         int64               `json:"jackpot" db:"jackpot"`
	EntrantCount    int                 `json:"entrant_count" db:"entrant_count"`
	Tallies         [NumCharities]int64 `json:"tallies" db:"-"`
	StartedAt       time.Time           `json:"started_at" db:"started_at"`
	ClosedAt        time.Time           `json:"closed_at" db:"closed_at"`
}

// UpkeepStatus reports the closure-guard evaluation for diagnosability.
type UpkeepStatus struct {
	Needed       bool          `json:"needed"`
	State        State         `json:"state"`
	Elapsed      time.Duration `json:"elapsed"`
	EntrantCount int           `json:"entrant_count"`
	Balance      int64         `json:"balance"`
}

// Event topics published by the engine.
const (
	EventEntered       = "raffle.entered"
	EventUpkeep        = "raffle.upkeep.performed"
	EventWinnerPicked  = "raffle.winner.picked"
	EventCharityWinner = "raffle.charity.winner"
	EventMatchFunded   = "raffle.match.funded"
	EventMatchReleased = "raffle.match.released"
)
