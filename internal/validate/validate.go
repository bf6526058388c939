// internal/validate/validate.go
package validate

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// IsISBN reports whether s is a checksummed ISBN-10 or ISBN-13 after stripping
// hyphen and space separators. Anything of another length is rejected.
func IsISBN(s string) bool {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	switch len(s) {
	case 10:
		return v.Var(s, "isbn10") == nil
	case 13:
		return v.Var(s, "isbn13") == nil
	default:
		return false
	}
}

// IsEmail reports whether s is structurally a valid email address.
func IsEmail(s string) bool {
	return v.Var(s, "email") == nil
}
