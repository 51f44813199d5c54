package chat

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed replies.yaml
var defaultReplies []byte

// ruleDef is the YAML form of a single pattern/reply pair.
type ruleDef struct {
	Pattern string `yaml:"pattern"`
	Reply   string `yaml:"reply"`
}

// tableDef is the YAML form of one channel's reply table.
type tableDef struct {
	Empty    string    `yaml:"empty"`
	Rules    []ruleDef `yaml:"rules"`
	Fallback string    `yaml:"fallback"`
}

type rule struct {
	re    *regexp.Regexp
	reply string
}

// ReplyTable answers a message with the first matching rule.
type ReplyTable struct {
	empty    string
	rules    []rule
	fallback string
}

// Reply returns the auto-reply for content. Matching is case-insensitive
// and runs against the trimmed text.
func (t *ReplyTable) Reply(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return t.empty
	}
	for _, r := range t.rules {
		if r.re.MatchString(text) {
			return r.reply
		}
	}
	return fmt.Sprintf(t.fallback, text)
}

// ReplyBook holds the reply tables for the auto-replying channels.
type ReplyBook struct {
	Chat     *ReplyTable
	Realtime *ReplyTable
}

// LoadReplyBook parses a YAML reply book.
//
// Postcondition: Returns a book with both tables set, or a non-nil error.
func LoadReplyBook(data []byte) (*ReplyBook, error) {
	var raw struct {
		Chat     tableDef `yaml:"chat"`
		Realtime tableDef `yaml:"realtime"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing reply book: %w", err)
	}
	chat, err := compileTable("chat", raw.Chat)
	if err != nil {
		return nil, err
	}
	realtime, err := compileTable("realtime", raw.Realtime)
	if err != nil {
		return nil, err
	}
	return &ReplyBook{Chat: chat, Realtime: realtime}, nil
}

// DefaultReplyBook returns the built-in reply book.
func DefaultReplyBook() *ReplyBook {
	book, err := LoadReplyBook(defaultReplies)
	if err != nil {
		panic(fmt.Sprintf("building default reply book: %v", err))
	}
	return book
}

func compileTable(name string, def tableDef) (*ReplyTable, error) {
	if def.Empty == "" {
		return nil, fmt.Errorf("reply table %s: empty reply must be set", name)
	}
	if strings.Count(def.Fallback, "%s") != 1 {
		return nil, fmt.Errorf("reply table %s: fallback must contain exactly one %%s", name)
	}
	t := &ReplyTable{empty: def.Empty, fallback: def.Fallback}
	for i, rd := range def.Rules {
		re, err := regexp.Compile("(?i)" + rd.Pattern)
		if err != nil {
			return nil, fmt.Errorf("reply table %s rule %d: %w", name, i, err)
		}
		t.rules = append(t.rules, rule{re: re, reply: rd.Reply})
	}
	return t, nil
}
