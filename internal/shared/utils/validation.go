package utils

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Size limits
const (
	MaxBodySize    = 64 * 1024 // Control API request bodies
	MaxIDLength    = 128
	MaxEventLength = 64
)

var (
	// SafeIDPattern matches application ids: alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// DataIDPattern matches canonical data ids, which may carry dots from
	// their source names
	DataIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// EventPattern matches controller event names such as "selectStart"
	EventPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
)

// ValidateString checks length bounds and UTF-8 validity
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}

	if !utf8.ValidString(value) {
		return fmt.Errorf("%s contains invalid UTF-8", fieldName)
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must be at most %d characters", fieldName, maxLen)
	}
	return nil
}

// ValidateID validates an application id
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// ValidateDataID validates a canonical data id
func ValidateDataID(id string) error {
	if err := ValidateString(id, "data_id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if !DataIDPattern.MatchString(id) {
		return fmt.Errorf("data_id contains invalid characters")
	}
	return nil
}

// ValidateEvent validates a controller event name
func ValidateEvent(event string) error {
	if err := ValidateString(event, "event", 1, MaxEventLength, true); err != nil {
		return err
	}
	if !EventPattern.MatchString(event) {
		return fmt.Errorf("event must start with a letter and contain only alphanumeric, hyphens, and underscores")
	}
	return nil
}
