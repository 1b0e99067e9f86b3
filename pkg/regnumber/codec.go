// Package regnumber implements the registration number grammar: ordered
// digit groups joined by literal separators. All functions are pure; callers
// are responsible for caching derived artifacts such as compiled patterns.
package regnumber

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxTotalDigits bounds the numeric capacity of any format.
	MaxTotalDigits = 15
	// MaxFormattedLength matches the registration_number column width.
	MaxFormattedLength = 15
)

var (
	// ErrCapacityExceeded means a value or existing identifier does not fit
	// the format's digit capacity.
	ErrCapacityExceeded = errors.New("value exceeds format capacity")
	// ErrCapacityExhausted means the sequence has no numbers left under the
	// current format.
	ErrCapacityExhausted = errors.New("no registration numbers left for the configured format")

	nonDigits = regexp.MustCompile(`\D`)
)

// SeparatorPolicy controls which separator strings a format may use.
type SeparatorPolicy struct {
	// AllowAny accepts any non-empty separator string.
	AllowAny bool
	// Allowlist is consulted when AllowAny is false.
	Allowlist []string
}

// DefaultSeparatorPolicy accepts any non-empty separator.
func DefaultSeparatorPolicy() SeparatorPolicy {
	return SeparatorPolicy{AllowAny: true}
}

// FieldError reports a validation failure against a single spec field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSpec checks a candidate format against the grammar rules.
func ValidateSpec(groups []int, separators []string, policy SeparatorPolicy) error {
	if len(groups) == 0 {
		return &FieldError{Field: "digit_groups", Message: "at least one digit group is required"}
	}
	for _, g := range groups {
		if g <= 0 {
			return &FieldError{Field: "digit_groups", Message: "digit groups must be positive integers"}
		}
	}
	if TotalDigits(groups) > MaxTotalDigits {
		return &FieldError{
			Field:   "digit_groups",
			Message: fmt.Sprintf("total digits cannot exceed %d", MaxTotalDigits),
		}
	}
	if len(separators) != len(groups)-1 {
		return &FieldError{
			Field:   "separators",
			Message: fmt.Sprintf("expected %d separators for %d digit groups", len(groups)-1, len(groups)),
		}
	}
	for _, sep := range separators {
		if sep == "" {
			return &FieldError{Field: "separators", Message: "separators must be non-empty"}
		}
		if !policy.AllowAny && !contains(policy.Allowlist, sep) {
			return &FieldError{
				Field:   "separators",
				Message: fmt.Sprintf("separator %q is not allowed (allowed: %s)", sep, strings.Join(policy.Allowlist, " ")),
			}
		}
	}
	if FormattedLength(groups, separators) > MaxFormattedLength {
		return &FieldError{
			Field:   "separators",
			Message: fmt.Sprintf("formatted length cannot exceed %d characters", MaxFormattedLength),
		}
	}
	return nil
}

// TotalDigits is the numeric width of a format.
func TotalDigits(groups []int) int {
	total := 0
	for _, g := range groups {
		total += g
	}
	return total
}

// FormattedLength is the rendered width of a format, separators included.
func FormattedLength(groups []int, separators []string) int {
	length := TotalDigits(groups)
	for _, sep := range separators {
		length += len(sep)
	}
	return length
}

// MaxValue is the largest numeric value the format can represent.
func MaxValue(groups []int) int64 {
	max := int64(1)
	for i := 0; i < TotalDigits(groups); i++ {
		max *= 10
	}
	return max - 1
}

// BuildPattern produces an anchored regular expression matching exactly the
// strings FormatValue can produce for the given format.
func BuildPattern(groups []int, separators []string) string {
	var b strings.Builder
	b.WriteString("^")
	for i, g := range groups {
		fmt.Fprintf(&b, `\d{%d}`, g)
		if i < len(separators) {
			b.WriteString(regexp.QuoteMeta(separators[i]))
		}
	}
	b.WriteString("$")
	return b.String()
}

// FormatValue zero-pads n to the format's digit width and interleaves the
// separators at group boundaries.
func FormatValue(groups []int, separators []string, n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: negative value %d", ErrCapacityExceeded, n)
	}
	total := TotalDigits(groups)
	digits := fmt.Sprintf("%0*d", total, n)
	if len(digits) > total {
		return "", fmt.Errorf("%w: %d needs %d digits, format holds %d", ErrCapacityExceeded, n, len(digits), total)
	}

	var b strings.Builder
	offset := 0
	for i, g := range groups {
		b.WriteString(digits[offset : offset+g])
		offset += g
		if i < len(separators) {
			b.WriteString(separators[i])
		}
	}
	return b.String(), nil
}

// HasDigits reports whether the identifier contains at least one decimal
// digit.
func HasDigits(identifier string) bool {
	return nonDigits.ReplaceAllString(identifier, "") != ""
}

// ExtractNumeric strips every non-digit character and parses the remainder.
// Returns 0 for strings without digits.
func ExtractNumeric(identifier string) int64 {
	digits := nonDigits.ReplaceAllString(identifier, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// NextValue computes the next numeric value in the sequence. With no prior
// record, single-group formats start at 1; multi-group formats reserve the
// leading group as a category code and start at 10^(trailing digits) + 1.
func NextValue(groups []int, lastIdentifier string, hasPrior bool) (int64, error) {
	var next int64
	switch {
	case hasPrior:
		next = ExtractNumeric(lastIdentifier) + 1
	case len(groups) == 1:
		next = 1
	default:
		trailing := TotalDigits(groups[1:])
		next = pow10(trailing) + 1
	}

	if next > MaxValue(groups) {
		return 0, ErrCapacityExhausted
	}
	return next, nil
}

// CheckCapacity verifies that every existing identifier fits the candidate
// format, both by digit count and by numeric value.
func CheckCapacity(groups []int, identifiers []string) error {
	total := TotalDigits(groups)
	maxVal := MaxValue(groups)

	for _, identifier := range identifiers {
		digits := nonDigits.ReplaceAllString(identifier, "")
		if digits == "" {
			continue
		}
		if len(digits) > total {
			return fmt.Errorf("%w: existing registration numbers require at least %d digits", ErrCapacityExceeded, len(digits))
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n > maxVal {
			return fmt.Errorf("%w: existing registration numbers exceed the new format's capacity", ErrCapacityExceeded)
		}
	}
	return nil
}

// BuildExample renders a deterministic sample string for display, cycling
// the digits 0-9.
func BuildExample(groups []int, separators []string) string {
	var b strings.Builder
	digit := 0
	for i, g := range groups {
		for j := 0; j < g; j++ {
			b.WriteByte(byte('0' + digit))
			digit = (digit + 1) % 10
		}
		if i < len(separators) {
			b.WriteString(separators[i])
		}
	}
	return b.String()
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
