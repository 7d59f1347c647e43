package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePlainTextUntouched(t *testing.T) {
	in := []string{" 2x Margherita", "    > no basil\tplease"}
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	out := Sanitize([]string{"cut\x00here\x07now", "del\x7fete"})
	assert.Equal(t, []string{"cutherenow", "delete"}, out)
}

func TestSanitizeStripsCSISequences(t *testing.T) {
	out := Sanitize([]string{"\x1b[31mred\x1b[0m text"})
	assert.Equal(t, []string{"red text"}, out)
}

func TestSanitizeStripsOSCSequences(t *testing.T) {
	// BEL-terminated and ST-terminated OSC both vanish.
	out := Sanitize([]string{"\x1b]0;title\x07after", "\x1b]0;title\x1b\\after"})
	assert.Equal(t, []string{"after", "after"}, out)
}

func TestSanitizeBareEscape(t *testing.T) {
	out := Sanitize([]string{"a\x1bZb", "trailing\x1b"})
	assert.Equal(t, []string{"ab", "trailing"}, out)
}

func TestSanitizeUnterminatedSequence(t *testing.T) {
	out := Sanitize([]string{"x\x1b[31;1"})
	assert.Equal(t, []string{"x"}, out)
}
