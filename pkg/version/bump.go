package version

import (
	"github.com/Masterminds/semver/v3"
)

// Bump classifies the distance between two releases.
type Bump int

const (
	BumpNone Bump = iota
	BumpPatch
	BumpMinor
	BumpMajor
	// BumpDowngrade means the target sorts before the current version.
	BumpDowngrade
)

func (b Bump) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	case BumpDowngrade:
		return "downgrade"
	default:
		return "none"
	}
}

// Classify reports which release segment changes between from and to.
// Only the first three release components take part; an epoch change is
// always major.
func Classify(from, to *Version) Bump {
	switch c := Compare(from, to); {
	case c == 0:
		return BumpNone
	case c > 0:
		return BumpDowngrade
	case from.Epoch != to.Epoch:
		return BumpMajor
	}

	a, b := from.semver(), to.semver()
	switch {
	case a.Major() != b.Major():
		return BumpMajor
	case a.Minor() != b.Minor():
		return BumpMinor
	default:
		// 1.2.3 -> 1.2.3.1 and 1.2.3rc1 -> 1.2.3 land here too.
		return BumpPatch
	}
}

func (v *Version) semver() *semver.Version {
	var parts [3]uint64
	for i := 0; i < len(parts) && i < len(v.Release); i++ {
		parts[i] = uint64(v.Release[i])
	}
	return semver.New(parts[0], parts[1], parts[2], "", "")
}
