package risk

import "github.com/cory-johannsen/tabletop/internal/game/dice"

// Clash is the comparison of one attacker die against one defender die.
type Clash struct {
	Attacker int
	Defender int
}

// DefenderWins reports whether the defender holds; ties go to the defender.
func (c Clash) DefenderWins() bool {
	return c.Attacker <= c.Defender
}

// Battle is the outcome of a single roll exchange.
//
// Invariant: len(Clashes) == min(len(Attacker), len(Defender)).
type Battle struct {
	Attacker dice.Pool
	Defender dice.Pool
	Clashes  []Clash
}

// Losses returns the armies each side loses in this exchange.
func (b Battle) Losses() (attacker, defender int) {
	for _, c := range b.Clashes {
		if c.DefenderWins() {
			attacker++
		} else {
			defender++
		}
	}
	return attacker, defender
}

// ResolveBattle pairs the highest remaining dice of each side. Dice beyond
// the shorter pool are rolled but never compared.
//
// Precondition: both pools are sorted descending.
// Postcondition: the Battle invariant holds.
func ResolveBattle(attacker, defender dice.Pool) Battle {
	pairs := min(len(attacker), len(defender))
	clashes := make([]Clash, pairs)
	for i := range clashes {
		clashes[i] = Clash{Attacker: attacker[i], Defender: defender[i]}
	}
	return Battle{Attacker: attacker, Defender: defender, Clashes: clashes}
}
