package risk

import "github.com/cory-johannsen/tabletop/internal/game/dice"

// MinPlayers and MaxPlayers bound the accepted player count.
const (
	MinPlayers = 2
	MaxPlayers = 5
)

// Shuffle permutes list in place uniformly (back-to-front Fisher-Yates).
//
// Precondition: src must be non-nil.
func Shuffle(list []string, src dice.Source) {
	for i := len(list) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		list[i], list[j] = list[j], list[i]
	}
}

// Partition splits list into players contiguous blocks. The first
// len(list)%players blocks receive one extra element.
//
// Precondition: players >= 1.
// Postcondition: blocks preserve list order; sizes differ by at most one.
func Partition(list []string, players int) [][]string {
	base := len(list) / players
	extra := len(list) % players

	blocks := make([][]string, players)
	start := 0
	for i := range blocks {
		size := base
		if i < extra {
			size++
		}
		blocks[i] = list[start : start+size : start+size]
		start += size
	}
	return blocks
}

// DivideCountries shuffles a fresh copy of the board and deals it to players.
//
// Precondition: MinPlayers <= players <= MaxPlayers.
func DivideCountries(players int, src dice.Source) [][]string {
	board := Territories()
	Shuffle(board, src)
	return Partition(board, players)
}
