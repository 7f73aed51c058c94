// Package masking masks sensitive string fields of parsed JSON payloads.
//
// A Rule describes which characters of one field's value are replaced and with what.
// MaskValue applies a rule to a single string, MaskTree walks a jsontree.Node and
// applies the rule resolved for each named field. Rules are found through a Lookup:
// either a StaticTable derived from struct tags, or a Registry built from configured
// field entries, which also understands the code/codeValue discriminator envelope.
//
// Nothing in this package returns an error for bad rule geometry. Out of range or
// inconsistent indices degrade to a clamped range or to an unchanged value, so that
// masking can never block the request path that is being logged.
package masking

// DefaultMaskChar is used when neither the rule nor the caller picks a mask character.
const DefaultMaskChar = '*'

// Rule is an immutable description of how to mask one field's string value.
// The zero Rule masks the whole value with the default mask character.
type Rule struct {
	// MaskChars is cycled across the masked range, restarting at the range start.
	MaskChars string
	// MaskChar overrides MaskChars when non-zero.
	MaskChar rune

	// StartIndex and Length select the half-open range [StartIndex, StartIndex+Length).
	StartIndex int
	Length     int

	// MaskLength masks the first MaskLength characters, or the whole value when
	// the value is not longer than MaskLength.
	MaskLength int

	// NameMaskLength switches to letter mode: only the first NameMaskLength
	// letters are masked, other characters are skipped.
	NameMaskLength int

	// MaskAll forces masking of the whole value.
	MaskAll bool
}

// maskChars returns the sequence cycled across a masked range.
func (r Rule) maskChars(defaultChar rune) []rune {
	if r.MaskChar != 0 {
		return []rune{r.MaskChar}
	}
	if r.MaskChars != "" {
		return []rune(r.MaskChars)
	}
	return []rune{orDefault(defaultChar)}
}

// letterChar returns the single character used in letter mode.
func (r Rule) letterChar(defaultChar rune) rune {
	if r.MaskChar != 0 {
		return r.MaskChar
	}
	return orDefault(defaultChar)
}

func orDefault(c rune) rune {
	if c == 0 {
		return DefaultMaskChar
	}
	return c
}
