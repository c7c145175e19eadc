package snapshot

import "unicode/utf8"

// CountChars counts characters (runes, not bytes).
func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}

// EstimateTokens approximates token count as ceil(chars / 4).
//
// This is a deliberate simplification, not a real tokenizer: it only
// needs to be monotonic in length and roughly consistent across
// snapshots for the budget math in assembly to behave sensibly.
func EstimateTokens(s string) int {
	return (CountChars(s) + 3) / 4
}
