package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// DefaultDigitGroups and DefaultSeparators seed the format singleton on
// first access.
var (
	DefaultDigitGroups = []int{2, 2, 3}
	DefaultSeparators  = []string{"-", "-"}
)

// FormatSpec is the singleton registration number grammar. Exactly one row
// exists; it is created implicitly on first read and never deleted.
type FormatSpec struct {
	DigitGroups []int     `json:"digit_groups"`
	Separators  []string  `json:"separators"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DigitGroupsJSON / SeparatorsJSON marshal the spec columns for storage.
func (s *FormatSpec) DigitGroupsJSON() ([]byte, error) {
	return json.Marshal(s.DigitGroups)
}

func (s *FormatSpec) SeparatorsJSON() ([]byte, error) {
	return json.Marshal(s.Separators)
}

// ScanColumns populates the spec from its stored JSON columns.
func (s *FormatSpec) ScanColumns(digitGroups, separators []byte) error {
	if err := json.Unmarshal(digitGroups, &s.DigitGroups); err != nil {
		return fmt.Errorf("failed to decode digit groups: %w", err)
	}
	if err := json.Unmarshal(separators, &s.Separators); err != nil {
		return fmt.Errorf("failed to decode separators: %w", err)
	}
	return nil
}

// ActiveFormat is the cached, derived view of the format singleton handed
// out by the registry.
type ActiveFormat struct {
	DigitGroups     []int          `json:"digit_groups"`
	Separators      []string       `json:"separators"`
	TotalDigits     int            `json:"total_digits"`
	FormattedLength int            `json:"formatted_length"`
	Pattern         string         `json:"pattern"`
	Example         string         `json:"example"`
	Regexp          *regexp.Regexp `json:"-"`
}

// Matches reports whether s is a well-formed identifier under this format.
func (f *ActiveFormat) Matches(s string) bool {
	return f.Regexp != nil && f.Regexp.MatchString(s)
}

// UpdateFormatRequest carries a format change. Nil fields keep the current
// spec's values (partial update).
type UpdateFormatRequest struct {
	DigitGroups []int    `json:"digit_groups"`
	Separators  []string `json:"separators"`
}
