// Package validation provides input validation helpers for the Nexa Guard API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (64KB). Analyze bodies
// carry a single address.
const MaxRequestSize = 64 << 10

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 1024

var (
	// Short forms such as 0x2 are valid addresses.
	suiAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{1,64}$`)
	moveIdentRegex  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidSuiAddress checks for a 0x-prefixed hex address of at most 32 bytes.
func IsValidSuiAddress(addr string) bool {
	return suiAddressRegex.MatchString(addr)
}

// IsValidCoinType checks for package::module::Symbol with a hex package
// address and Move identifiers.
func IsValidCoinType(coinType string) bool {
	pkg, rest, ok := strings.Cut(coinType, "::")
	if !ok || !IsValidSuiAddress(pkg) {
		return false
	}
	mod, sym, ok := strings.Cut(rest, "::")
	return ok && moveIdentRegex.MatchString(mod) && moveIdentRegex.MatchString(sym)
}

// SanitizeString trims whitespace, drops NUL bytes and caps the length.
func SanitizeString(s string, maxLen int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\x00", "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// FieldError is a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + " " + e.Message }

// Errors collects every failed rule.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.String()
	}
	return strings.Join(msgs, "; ")
}

// Rule checks one field, returning nil when it passes.
type Rule func() *FieldError

// Validate runs every rule and returns the failures, or nil.
func Validate(rules ...Rule) Errors {
	var errs Errors
	for _, r := range rules {
		if fe := r(); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

func check(field string, ok bool, msg string) *FieldError {
	if ok {
		return nil
	}
	return &FieldError{Field: field, Message: msg}
}

// Required fails on a blank value.
func Required(field, value string) Rule {
	return func() *FieldError {
		return check(field, strings.TrimSpace(value) != "", "is required")
	}
}

// ValidAddress fails on a non-empty value that is not a Sui address.
func ValidAddress(field, value string) Rule {
	return func() *FieldError {
		return check(field, value == "" || IsValidSuiAddress(value), "must be a Sui address (0x...)")
	}
}

// ValidCoinType fails on a non-empty value that is not a coin type.
func ValidCoinType(field, value string) Rule {
	return func() *FieldError {
		return check(field, value == "" || IsValidCoinType(value), "must be a coin type (0x...::module::Symbol)")
	}
}

// MaxLength fails when value is longer than max bytes.
func MaxLength(field, value string, max int) Rule {
	return func() *FieldError {
		return check(field, len(value) <= max, "exceeds maximum length")
	}
}
