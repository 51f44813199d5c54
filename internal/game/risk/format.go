package risk

import (
	"fmt"
	"strings"
)

// HowTo is the grammar description returned for "/howto".
const HowTo = "if (['31', '32', '21', '22', '11', '12'].includes(text))\n" +
	"if (/^countries [2-5]$/.test(text))\n" +
	"if (/^\\/howto$/.test(text))"

// Usage is returned for every unrecognised line.
const Usage = "Commands: '31','32','21','22','11','12' for dice; 'countries N' (2-5); /howto"

// FormatBattle renders a header with both pools followed by one line per clash.
//
// Postcondition: the result has exactly len(b.Clashes)+1 lines.
func FormatBattle(b Battle) string {
	lines := make([]string, len(b.Clashes))
	for i, c := range b.Clashes {
		if c.DefenderWins() {
			lines[i] = fmt.Sprintf("🥊 minus attacker army (A%d D%d)", c.Attacker, c.Defender)
		} else {
			lines[i] = fmt.Sprintf("🔫 minus defender army (A%d D%d)", c.Attacker, c.Defender)
		}
	}
	header := fmt.Sprintf("🎲 attacker (%s) | defender (%s) \n", b.Attacker, b.Defender)
	return header + strings.Join(lines, "\n")
}

// FormatPartition renders the per-player summary and the detailed lists.
func FormatPartition(blocks [][]string) string {
	total := 0
	for _, block := range blocks {
		total += len(block)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d countries\n", total)
	for i, block := range blocks {
		fmt.Fprintf(&b, "  Player %d: %d countries\n", i+1, len(block))
	}
	b.WriteString("\n")
	for i, block := range blocks {
		fmt.Fprintf(&b, "Player %d (%d)\n", i+1, len(block))
		for _, name := range block {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}
