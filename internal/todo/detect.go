package todo

import (
	"fmt"
	"strings"
)

// ResearchKeywords are matched in order; the first hit wins.
var ResearchKeywords = []string{
	"research", "investigate", "look up", "find out", "learn about",
	"understand", "study", "explore", "analyze", "compare",
	"what is", "how to", "why does", "when should", "where can",
}

// DetectResearchNeeds reports whether text asks for research and, if so,
// a context note naming the matched keyword.
func DetectResearchNeeds(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, kw := range ResearchKeywords {
		if strings.Contains(lower, kw) {
			return true, fmt.Sprintf(`Todo contains research keyword: "%s". Full text: "%s"`, kw, text)
		}
	}
	return false, ""
}
