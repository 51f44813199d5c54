package risk

import (
	"regexp"
	"strings"
)

// Kind classifies a parsed line.
type Kind int

const (
	// KindUsage is any line that matches no command.
	KindUsage Kind = iota
	// KindBattle is one of the six two-digit battle codes.
	KindBattle
	// KindCountries is "countries N" with N in [2,5].
	KindCountries
	// KindHowTo is the literal "/howto".
	KindHowTo
)

// BattleCodes lists the accepted attacker/defender codes in the order the
// usage text presents them.
var BattleCodes = []string{"31", "32", "21", "22", "11", "12"}

var countriesPattern = regexp.MustCompile(`^countries [2-5]$`)

// Command holds the classification of one input line.
type Command struct {
	Kind Kind
	// Text is the trimmed input.
	Text string
	// Attackers and Defenders are set for KindBattle.
	Attackers int
	Defenders int
	// Players is set for KindCountries.
	Players int
}

// Parse classifies a raw input line. Matching is exact and case-sensitive
// after a single leading/trailing whitespace trim.
//
// Postcondition: Returns a Command; unmatched input yields KindUsage.
func Parse(line string) Command {
	text := strings.TrimSpace(line)
	cmd := Command{Kind: KindUsage, Text: text}

	for _, code := range BattleCodes {
		if text == code {
			cmd.Kind = KindBattle
			cmd.Attackers = int(code[0] - '0')
			cmd.Defenders = int(code[1] - '0')
			return cmd
		}
	}

	if countriesPattern.MatchString(text) {
		cmd.Kind = KindCountries
		cmd.Players = int(text[len(text)-1] - '0')
		return cmd
	}

	if text == "/howto" {
		cmd.Kind = KindHowTo
	}
	return cmd
}
