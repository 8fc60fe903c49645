// Package version selects the best semver version satisfying a range
// constraint. Constraints follow standard semver range rules: exact
// ("1.2.0"), caret ("^1.0.0"), tilde ("~1.0.0"), wildcard ("*"), and
// comparison/ranged forms (">=1.0.0 <2.0.0").
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Resolve returns the maximum version in available that satisfies
// constraint. An empty constraint is treated as "*" (any). The empty
// string is returned when no version satisfies; callers decide whether
// that is fatal.
//
// For a fixed available set and constraint, the result is always the
// same value: versions are totally ordered, so the maximum is unique.
func Resolve(available []string, constraint string) (string, error) {
	if constraint == "" {
		constraint = "*"
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	var (
		best    *semver.Version
		bestRaw string
	)
	for _, raw := range available {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return "", fmt.Errorf("invalid version %q: %w", raw, err)
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}

	return bestRaw, nil
}

// Satisfies reports whether a single version satisfies constraint.
func Satisfies(version, constraint string) (bool, error) {
	got, err := Resolve([]string{version}, constraint)
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Compare returns -1, 0, or 1 comparing two semver strings.
func Compare(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", a, err)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}
