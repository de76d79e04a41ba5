package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compatible reports whether v satisfies the compatible release clause
// "~=base": v is at least base and keeps every release segment of base
// except the last. "~=1.4.2" allows 1.4.9 but not 1.5; "~=1.4" allows 1.9
// but not 2.0. A single-segment base only sets the lower bound.
func Compatible(v, base *Version) bool {
	if v.Epoch != base.Epoch || v.LessThan(base) {
		return false
	}
	for i := 0; i < len(base.Release)-1; i++ {
		if segment(v.Release, i) != base.Release[i] {
			return false
		}
	}
	return true
}

// Caret reports whether v satisfies the Poetry constraint "^base", which
// allows updates that do not change the leftmost non-zero segment.
func Caret(v, base *Version) (bool, error) { return poetry("^", v, base) }

// Tilde reports whether v satisfies the Poetry constraint "~base", which
// allows patch updates, or minor updates when only a major is given.
func Tilde(v, base *Version) (bool, error) { return poetry("~", v, base) }

// poetry evaluates caret and tilde constraints with semver rules, which
// Poetry shares. Only the first three release segments take part.
func poetry(op string, v, base *Version) (bool, error) {
	if v.Epoch != base.Epoch {
		return false, nil
	}
	n := min(len(base.Release), 3)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.Itoa(base.Release[i])
	}
	c, err := semver.NewConstraint(op + strings.Join(parts, "."))
	if err != nil {
		return false, fmt.Errorf("%w: constraint %s%s: %v", ErrInvalid, op, base, err)
	}
	return c.Check(v.semver()), nil
}

func segment(release []int, i int) int {
	if i < len(release) {
		return release[i]
	}
	return 0
}
