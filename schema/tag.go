package schema

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// tagPattern is the sanitized-tag invariant from spec.md §3 and §8:
// "every element's tag matches ^[a-z][a-z0-9-]*$".
var tagPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ErrInvalidTag is returned by SanitizeTag when raw cannot be turned
// into a valid tag by stripping/trimming/lowercasing alone.
var ErrInvalidTag = errors.New("schema: invalid tag")

// SanitizeTag applies the tag sanitization rule (spec.md §4.2): strip
// angle brackets, trim, lowercase; reject empty; require the tag
// pattern. Callers treat a non-nil error as a no-op on the offending
// node only (spec.md §7).
func SanitizeTag(raw string) (string, error) {
	s := strings.NewReplacer("<", "", ">", "").Replace(raw)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", errors.Wrap(ErrInvalidTag, "empty after sanitization")
	}
	if !tagPattern.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidTag, "%q does not match ^[a-z][a-z0-9-]*$", s)
	}
	return s, nil
}
