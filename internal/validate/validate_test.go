// internal/validate/validate_test.go
package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestIsISBN(t *testing.T) {
	valid := []string{
		"0-8436-1072-7",
		"0843610727",
		"9780141439518",
		"978-0-14-143951-8",
		"978 0743273565",
	}
	for _, s := range valid {
		assert.True(t, IsISBN(s), "expected valid: %s", s)
	}

	invalid := []string{
		"",
		"0843610728",    // bad check digit
		"9780141439519", // bad check digit
		"978014143951",  // 12 digits
		"not-an-isbn",
		"08436107271234",
	}
	for _, s := range invalid {
		assert.False(t, IsISBN(s), "expected invalid: %s", s)
	}
}

func TestIsISBNRejectsWrongLengths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[0-9]{1,20}`).Draw(t, "digits")
		if len(s) == 10 || len(s) == 13 {
			t.Skip("checksum lengths covered separately")
		}
		assert.False(t, IsISBN(s))
	})
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("patron@example.com"))
	assert.True(t, IsEmail("first.last+tag@sub.example.org"))

	assert.False(t, IsEmail(""))
	assert.False(t, IsEmail("no-at-sign"))
	assert.False(t, IsEmail("missing@domain@twice.com"))
}
