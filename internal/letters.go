package internal

import (
	"slices"
	"strings"
)

// LetterSet is a set of uppercase A-Z letters.
type LetterSet map[rune]bool

func NewLetterSet(letters string) LetterSet {
	s := LetterSet{}
	for _, ch := range strings.ToUpper(letters) {
		if IsLetter(ch) {
			s[ch] = true
		}
	}
	return s
}

func (s LetterSet) Add(ch rune)      { s[ch] = true }
func (s LetterSet) Has(ch rune) bool { return s[ch] }

// Sorted returns the members as single-letter strings in alphabetical order.
func (s LetterSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ch := range s {
		out = append(out, string(ch))
	}
	slices.Sort(out)
	return out
}

func IsLetter(ch rune) bool { return ch >= 'A' && ch <= 'Z' }

func IsVowel(ch rune) bool { return strings.ContainsRune(Vowels, ch) }

// ParseLetter normalizes user input to a single uppercase A-Z letter.
func ParseLetter(s string) (rune, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || !IsLetter(rune(s[0])) {
		return 0, false
	}
	return rune(s[0]), true
}

// AnswerLetters returns every alphabetic character of the answer, duplicates included.
func AnswerLetters(answer string) []rune {
	out := make([]rune, 0, len(answer))
	for _, ch := range strings.ToUpper(answer) {
		if IsLetter(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func CountLetter(answer string, ch rune) int {
	return strings.Count(strings.ToUpper(answer), string(ch))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
