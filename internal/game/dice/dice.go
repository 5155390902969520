// Package dice provides the randomness abstraction used by combat and encounter
// pacing: turn grant picks, attack-type rolls, and damage expressions.
package dice

import "fmt"

// Source is the randomness provider for all combat rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult holds the audit trail for a single damage expression evaluation.
//
// Postcondition: Total() == max(0, sum(Dice) + Modifier).
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier, floored at zero.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	if total < 0 {
		return 0
	}
	return total
}

// String returns an audit string such as "1d3+1 [2] +1 = 3".
func (r RollResult) String() string {
	return fmt.Sprintf("%s %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
