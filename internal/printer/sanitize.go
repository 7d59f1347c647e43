package printer

import "strings"

// Sanitize strips control characters and raw escape sequences from document
// lines before they reach the print boundary. Tabs survive; everything else
// below 0x20 and 0x7F is dropped, and ANSI CSI/OSC sequences are removed
// wholesale.
func Sanitize(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = sanitizeLine(line)
	}
	return out
}

func sanitizeLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == 0x1b { // ESC: skip the whole sequence
			i += escapeLen(runes[i+1:])
			continue
		}
		if r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeLen returns how many runes after ESC belong to the sequence.
func escapeLen(rest []rune) int {
	if len(rest) == 0 {
		return 0
	}
	switch rest[0] {
	case '[': // CSI: parameters end at a byte in 0x40-0x7E
		for i := 1; i < len(rest); i++ {
			if rest[i] >= 0x40 && rest[i] <= 0x7e {
				return i + 1
			}
		}
		return len(rest)
	case ']': // OSC: terminated by BEL or ESC \
		for i := 1; i < len(rest); i++ {
			if rest[i] == 0x07 {
				return i + 1
			}
			if rest[i] == 0x1b && i+1 < len(rest) && rest[i+1] == '\\' {
				return i + 2
			}
		}
		return len(rest)
	default:
		return 1
	}
}
