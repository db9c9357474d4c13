package key

import (
	"errors"
	"regexp"
)

// Pattern is the only accepted blob name shape: a YYYY-MM-DD date followed by
// exactly 20 alphanumeric characters.
//
// The check is syntactic. Month 13 or day 00 still match.
const Pattern = `^\d{4}-\d{2}-\d{2}-[A-Za-z0-9]{20}$`

// Format describes Pattern for humans, used in validation error messages.
const Format = "YYYY-MM-DD-{20 alphanumeric characters}"

// Example is a name that satisfies Pattern.
const Example = "2025-12-04-abc123def456xyz789ab"

var (
	// ErrMissing is returned for an empty name.
	ErrMissing = errors.New("missing parameter")

	// ErrPatternMismatch is returned for a name that does not match Pattern.
	ErrPatternMismatch = errors.New("pattern mismatch")
)

// \d is ASCII-only in RE2, so no unicode digits slip through.
var nameRegexp = regexp.MustCompile(Pattern)

// Valid reports whether name matches Pattern.
func Valid(name string) bool {
	return nameRegexp.MatchString(name)
}

// Validate returns ErrMissing or ErrPatternMismatch when name cannot be used
// as a storage key. A name that passes contains no path separators, dots or
// whitespace, so it is safe to hand straight to the store.
func Validate(name string) error {
	if name == "" {
		return ErrMissing
	}

	if !Valid(name) {
		return ErrPatternMismatch
	}

	return nil
}
