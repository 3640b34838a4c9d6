package session

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinTableNumber = 1
	MaxTableNumber = 999
	QuickPickCount = 20
)

// ValidationError reports input that must be corrected by the user. Nothing
// changed when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseTableNumber accepts a decimal integer in [1, 999].
func ParseTableNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: "table_number", Message: "table number is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "table_number", Message: fmt.Sprintf("%q is not a number", raw)}
	}
	if err := ValidateTableNumber(n); err != nil {
		return 0, err
	}
	return n, nil
}

func ValidateTableNumber(n int) error {
	if n < MinTableNumber || n > MaxTableNumber {
		return &ValidationError{
			Field:   "table_number",
			Message: fmt.Sprintf("table number must be between %d and %d", MinTableNumber, MaxTableNumber),
		}
	}
	return nil
}

// QuickPicks lists the table numbers offered as shortcuts.
func QuickPicks() []int {
	picks := make([]int, QuickPickCount)
	for i := range picks {
		picks[i] = i + 1
	}
	return picks
}
