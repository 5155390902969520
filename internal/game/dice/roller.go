package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger. Every roll is logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced with a no-op logger.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	if expr.Count > 0 {
		r.logger.Debug("dice roll",
			zap.String("expression", result.Expression),
			zap.Ints("dice", result.Dice),
			zap.Int("modifier", result.Modifier),
			zap.Int("total", result.Total()),
		)
	}
	return result
}

// Pick returns an index in [0, n), or -1 when n <= 0.
func (r *Roller) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return r.src.Intn(n)
}

// Percent reports whether a roll in [0, 100) falls below chance.
//
// Postcondition: chance <= 0 always returns false; chance >= 100 always returns true.
func (r *Roller) Percent(chance float64) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return float64(r.src.Intn(10000)) < chance*100
}
