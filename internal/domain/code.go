package domain

import (
	"math/rand"
	"strings"
)

// CodeAlphabet excludes glyphs that read ambiguously on a projected screen
// (0/O, 1/I).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed join-code length.
const CodeLength = 6

// NewJoinCode draws a random join code from the alphabet.
func NewJoinCode(rnd *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[rnd.Intn(len(CodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode maps user input onto the canonical uppercase form used as
// the registry key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
