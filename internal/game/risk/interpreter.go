// Package risk implements the Risk table command interpreter: a tiny grammar
// of dice-battle codes, a territory divider, and a static help text.
//
// The interpreter keeps no state between calls. The only shared value is the
// random source, which must be safe for concurrent use.
package risk

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// Interpreter resolves Risk table commands into reply text.
type Interpreter struct {
	roller *dice.Roller
	logger *zap.Logger
}

// NewInterpreter creates an Interpreter drawing randomness from src.
//
// Precondition: src and logger must be non-nil.
func NewInterpreter(src dice.Source, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		roller: dice.NewLoggedRoller(src, logger),
		logger: logger,
	}
}

// ResolveCommand maps one input line to its reply. It never fails: lines
// that match no command produce Usage.
//
// Postcondition: Returns a non-empty string.
func (in *Interpreter) ResolveCommand(text string) string {
	cmd := Parse(text)
	switch cmd.Kind {
	case KindBattle:
		return in.battle(cmd)
	case KindCountries:
		return in.countries(cmd)
	case KindHowTo:
		return HowTo
	default:
		return Usage
	}
}

func (in *Interpreter) battle(cmd Command) string {
	b := ResolveBattle(
		in.roller.RollPool("attacker", cmd.Attackers),
		in.roller.RollPool("defender", cmd.Defenders),
	)
	attackerLosses, defenderLosses := b.Losses()
	in.logger.Debug("battle resolved",
		zap.String("code", cmd.Text),
		zap.Int("attacker_losses", attackerLosses),
		zap.Int("defender_losses", defenderLosses),
	)
	return FormatBattle(b)
}

func (in *Interpreter) countries(cmd Command) string {
	blocks := DivideCountries(cmd.Players, in.roller.Source())
	in.logger.Debug("countries divided", zap.Int("players", cmd.Players))
	return FormatPartition(blocks)
}
