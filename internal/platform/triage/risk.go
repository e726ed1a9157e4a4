// Package triage normalizes the heterogeneous risk vocabularies used by
// hospital systems into one canonical three-level scale and provides the
// ordering used by alert lists and dashboard counts.
package triage

import "strings"

// Level is the canonical risk level.
type Level string

const (
	Safe     Level = "safe"
	Warning  Level = "warning"
	Critical Level = "critical"
)

// Normalize maps a raw risk string to a canonical Level. It is total:
// unknown, empty, or malformed input maps to Safe rather than failing,
// so a bad value from an upstream system can never break a list view.
func Normalize(raw string) Level {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RED", "CRITICAL":
		return Critical
	case "YELLOW", "WARNING":
		return Warning
	default:
		return Safe
	}
}

// Rank returns the sort weight of a canonical level. Higher is more urgent.
func Rank(l Level) int {
	switch l {
	case Critical:
		return 3
	case Warning:
		return 2
	default:
		return 1
	}
}

// RankRaw is shorthand for Rank(Normalize(raw)).
func RankRaw(raw string) int {
	return Rank(Normalize(raw))
}

// RawValues returns the raw vocabulary values that normalize to the given
// level. The store cannot filter on the derived canonical value, so count
// queries filter on these raw sets instead. This map must stay in lockstep
// with Normalize or counts and displayed badges will silently disagree;
// the lockstep is asserted by a round-trip test.
func RawValues(l Level) []string {
	switch l {
	case Critical:
		return []string{"RED", "CRITICAL", "critical"}
	case Warning:
		return []string{"YELLOW", "WARNING", "warning"}
	default:
		return []string{"GREEN", "SAFE", "safe"}
	}
}
