package masking

import "unicode"

// MaskValue masks value according to rule. Positions are counted in runes.
//
// Exactly one mode applies, picked in this order:
//
//	MaskAll                               whole value
//	NameMaskLength > 0                    first NameMaskLength letters
//	MaskLength > 0 && MaskLength >= len   whole value
//	StartIndex >= 0 && Length > 0         [StartIndex, StartIndex+Length)
//	MaskLength > 0                        [0, MaskLength)
//	otherwise                             whole value
//
// An empty value is returned unchanged. A zero defaultChar means DefaultMaskChar.
func MaskValue(value string, rule Rule, defaultChar rune) string {
	if value == "" {
		return value
	}

	runes := []rune(value)
	n := len(runes)

	if rule.MaskAll {
		return maskRange(runes, rule.maskChars(defaultChar), 0, n)
	}

	if rule.NameMaskLength > 0 {
		return maskLetters(runes, rule.letterChar(defaultChar), rule.NameMaskLength)
	}

	chars := rule.maskChars(defaultChar)

	switch {
	case rule.MaskLength > 0 && rule.MaskLength >= n:
		return maskRange(runes, chars, 0, n)
	case rule.StartIndex >= 0 && rule.Length > 0:
		end := n
		if rule.Length < n-rule.StartIndex {
			end = rule.StartIndex + rule.Length
		}
		return maskRange(runes, chars, rule.StartIndex, end)
	case rule.MaskLength > 0:
		return maskRange(runes, chars, 0, rule.MaskLength)
	default:
		return maskRange(runes, chars, 0, n)
	}
}

// maskRange replaces runes[start:end] with chars cycled from the range start.
// start is floored to 0 and end capped to len(runes); an empty range is a no-op.
func maskRange(runes []rune, chars []rune, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end || len(chars) == 0 {
		return string(runes)
	}

	out := make([]rune, len(runes))
	copy(out, runes)
	for i := start; i < end; i++ {
		out[i] = chars[(i-start)%len(chars)]
	}
	return string(out)
}

// maskLetters replaces the first limit letters with c. Non-letters are kept and
// do not count towards limit.
func maskLetters(runes []rune, c rune, limit int) string {
	out := make([]rune, len(runes))
	copy(out, runes)

	masked := 0
	for i := 0; i < len(out) && masked < limit; i++ {
		if unicode.IsLetter(out[i]) {
			out[i] = c
			masked++
		}
	}
	return string(out)
}
