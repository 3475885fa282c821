// Package tokens estimates token counts for conversation history so
// surfaces can annotate how much of a model's context window a request
// will consume. The counts are advisory: the engine's correctness never
// depends on them, and the documented contract is the 4-characters-per-token
// heuristic with an optional tiktoken-backed exact counter on top.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with the cl100k_base encoding, falling back to the
// heuristic when the encoding cannot be initialized (offline builds without
// the embedded BPE data). The zero value is ready to use.
type Counter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func (c *Counter) init() {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.encoding = enc
		}
	})
}

// Count returns the token count for text, exact when the encoding loaded.
func (c *Counter) Count(text string) int {
	c.init()
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Exact reports whether Count uses the real encoding rather than the
// heuristic.
func (c *Counter) Exact() bool {
	c.init()
	return c.encoding != nil
}

// Estimate is the documented heuristic: max(runes/4, words), never zero for
// non-blank text.
func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// Fit describes how an estimated history size relates to a context window.
type Fit struct {
	Tokens        int
	ContextWindow int
}

// Ratio returns the consumed fraction of the window, 0 when the window is
// unknown.
func (f Fit) Ratio() float64 {
	if f.ContextWindow <= 0 {
		return 0
	}
	return float64(f.Tokens) / float64(f.ContextWindow)
}

// Fits reports whether the history plus the reserved output budget stays
// inside the window. An unknown window always fits.
func (f Fit) Fits(reserveOutput int) bool {
	if f.ContextWindow <= 0 {
		return true
	}
	return f.Tokens+reserveOutput <= f.ContextWindow
}
