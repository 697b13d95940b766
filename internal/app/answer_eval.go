package app

import "strings"

// EvaluateAnswer compares a submitted answer to the expected one. The
// submitted side is trimmed, then both are compared with an ordinal case
// fold. Expected answers come pre-trimmed from the quiz definition; no fuzzy
// matching and no partial credit.
func EvaluateAnswer(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), expected)
}
