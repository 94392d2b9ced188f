package raffle

import "math/big"

// isTie reports whether any pair of tallies is equal. Note this is true
// even when the third tally strictly exceeds both members of the equal
// pair (e.g. 5,2,2): that pair is still perturbed and one of its members
// wins the match. Inherited behavior, kept intentionally.
func isTie(t [NumCharities]int64) bool {
	return t[0] == t[1] || t[0] == t[2] || t[1] == t[2]
}

// resolveCharity determines the charity winner from the captured tallies.
// words are the three perturbation words (batch words 1-3). It returns the
// winner and the highest raw donation count, which sizes the matching
// donation.
func resolveCharity(t [NumCharities]int64, words []*big.Int) (CharityID, int64) {
	if isTie(t) {
		return breakTie(t, words)
	}
	switch {
	case t[0] > t[1] && t[0] > t[2]:
		return Charity1, t[0]
	case t[1] > t[0] && t[1] > t[2]:
		return Charity2, t[1]
	default:
		return Charity3, t[2]
	}
}

// breakTie resolves equal tallies by adding a random word to each tied
// tally and comparing the perturbed values. A three-way tie perturbs all
// three; a two-way tie perturbs only the tied pair, first matching pair in
// the order {1,2}, {1,3}, {2,3}. When perturbed values still compare equal
// the later-numbered charity wins: the comparison chain only awards a
// strictly greater value, and the final else falls through. Inherited
// asymmetry, kept intentionally.
func breakTie(t [NumCharities]int64, words []*big.Int) (CharityID, int64) {
	highest := maxOfThree(t[0], t[1], t[2])

	p := [NumCharities]*big.Int{
		big.NewInt(t[0]),
		big.NewInt(t[1]),
		big.NewInt(t[2]),
	}

	switch {
	case t[0] == t[1] && t[1] == t[2]:
		p[0].Add(p[0], words[0])
		p[1].Add(p[1], words[1])
		p[2].Add(p[2], words[2])
		if p[0].Cmp(p[1]) > 0 && p[0].Cmp(p[2]) > 0 {
			return Charity1, highest
		}
		if p[1].Cmp(p[0]) > 0 && p[1].Cmp(p[2]) > 0 {
			return Charity2, highest
		}
		return Charity3, highest
	case t[0] == t[1]:
		p[0].Add(p[0], words[0])
		p[1].Add(p[1], words[1])
		if p[0].Cmp(p[1]) > 0 {
			return Charity1, highest
		}
		return Charity2, highest
	case t[0] == t[2]:
		p[0].Add(p[0], words[0])
		p[2].Add(p[2], words[1])
		if p[0].Cmp(p[2]) > 0 {
			return Charity1, highest
		}
		return Charity3, highest
	default: // t[1] == t[2]
		p[1].Add(p[1], words[0])
		p[2].Add(p[2], words[1])
		if p[1].Cmp(p[2]) > 0 {
			return Charity2, highest
		}
		return Charity3, highest
	}
}

// maxOfThree is a direct three-way comparison; no general sort is needed
// for a fixed triple.
func maxOfThree(a, b, c int64) int64 {
	max := a
	if b > max {
		max = b
	}
	if c > max {
		max = c
	}
	return max
}
