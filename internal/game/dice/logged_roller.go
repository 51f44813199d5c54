package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged pool rolls.
// Every roll is logged at debug level with the side label and dice values.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// RollPool rolls count dice for the named side and logs the sorted result.
//
// Postcondition: identical to the package-level RollPool.
func (r *Roller) RollPool(side string, count int) Pool {
	pool := RollPool(count, r.src)
	r.logger.Debug("dice roll",
		zap.String("side", side),
		zap.Int("count", count),
		zap.Ints("dice", pool),
	)
	return pool
}

// Source returns the randomness provider backing the roller.
func (r *Roller) Source() Source {
	return r.src
}
