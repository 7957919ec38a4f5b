package security

import "strings"

// Canonical returns the lowercase fold of value used for uniqueness
// comparisons. Display forms keep the casing the user typed and never
// participate in those comparisons.
func Canonical(value string) string {
	return strings.ToLower(value)
}

// IsUnique reports whether candidate is absent from existing after
// canonical folding. When original is non-empty and candidate folds to the
// same canonical value, the check passes immediately: an edit that leaves
// the field unchanged is never a conflict.
//
// The function is pure and storage-agnostic. The caller sources existing
// from the current persisted population and must still rely on the
// storage-level unique constraint at commit time to close the
// check-then-act race; this is the early, user-friendly rejection.
func IsUnique(candidate string, existing []string, original string) bool {
	canonical := Canonical(candidate)
	if original != "" && canonical == Canonical(original) {
		return true
	}
	for _, value := range existing {
		if canonical == Canonical(value) {
			return false
		}
	}
	return true
}
