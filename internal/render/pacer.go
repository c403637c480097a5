// Package render reveals finalized message text at a human reading pace
// and swaps in the rich form once the reveal finishes.
package render

import (
	"strings"
	"time"
	"unicode"
)

// DefaultPunctuation holds the characters that earn the long pause.
const DefaultPunctuation = ".,!?;:"

// Pacer computes the pause after each revealed character.
type Pacer struct {
	Base              time.Duration
	WhitespaceFactor  int
	PunctuationFactor int
	Punctuation       string
}

// DefaultPacer is 5ms per character, x2 after whitespace, x10 after punctuation.
func DefaultPacer() Pacer {
	return Pacer{
		Base:              5 * time.Millisecond,
		WhitespaceFactor:  2,
		PunctuationFactor: 10,
		Punctuation:       DefaultPunctuation,
	}
}

// Delay returns the pause that follows r.
func (p Pacer) Delay(r rune) time.Duration {
	switch {
	case strings.ContainsRune(p.Punctuation, r):
		return p.Base * time.Duration(p.PunctuationFactor)
	case unicode.IsSpace(r):
		return p.Base * time.Duration(p.WhitespaceFactor)
	default:
		return p.Base
	}
}

// Step is one character reveal.
type Step struct {
	// Text is everything revealed so far, including this character.
	Text string
	// At is the offset from the start of the reveal when this step shows.
	At time.Duration
	// Pause is the wait after this step before the next one.
	Pause time.Duration
}

// Schedule lays out the full reveal of text. It is a pure function of its
// input and the pacer constants.
func (p Pacer) Schedule(text string) []Step {
	steps := make([]Step, 0, len(text))
	var at time.Duration
	for i, r := range text {
		end := i + len(string(r))
		pause := p.Delay(r)
		steps = append(steps, Step{Text: text[:end], At: at, Pause: pause})
		at += pause
	}
	return steps
}

// Duration is the total time a reveal of text takes.
func (p Pacer) Duration(text string) time.Duration {
	var d time.Duration
	for _, r := range text {
		d += p.Delay(r)
	}
	return d
}
