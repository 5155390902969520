package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed damage expression. A flat amount such as "2" parses
// to Count == 0 with the amount held in Modifier.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(?:(\d*)d(\d+))?([+-]?\d+)?$`)

// Parse parses "N", "dS", "NdS", "NdS+M" and "NdS-M".
//
// Precondition: expr must be non-empty.
// Postcondition: Returns an Expression with Count == 0 or (Count >= 1 and Sides >= 2),
// or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	out := Expression{Raw: expr}
	if m[2] != "" {
		out.Count = 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
			}
			out.Count = n
		}
		sides, err := strconv.Atoi(m[2])
		if err != nil || sides < 2 {
			return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
		}
		out.Sides = sides
	}
	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
		if out.Count == 0 && strings.HasPrefix(m[3], "+") {
			return Expression{}, fmt.Errorf("dice: flat amount %q must not carry a sign", expr)
		}
		out.Modifier = mod
	}
	return out, nil
}

// MustParse parses expr and panics on error.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Fixed returns an Expression that always totals amount.
func Fixed(amount int) Expression {
	return Expression{Raw: strconv.Itoa(amount), Modifier: amount}
}

// Roll evaluates expr with src.
//
// Postcondition: len(result.Dice) == expr.Count.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}
