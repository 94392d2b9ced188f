package raffle

import "math/big"

// winnerIndex maps the first random word onto the entrant sequence:
// index = word mod entrantCount. The closure guard guarantees a non-empty
// entrant list by the time a word is delivered.
func winnerIndex(word *big.Int, entrantCount int) int {
	var m big.Int
	return int(m.Mod(word, big.NewInt(int64(entrantCount))).Int64())
}
