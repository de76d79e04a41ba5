package version

import (
	"cmp"
	"slices"
	"strconv"
)

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b.
func Compare(a, b *Version) int {
	if c := cmp.Compare(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(a.Release, b.Release); c != 0 {
		return c
	}
	if c := compareKey(a.preKey(), b.preKey()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Post, b.Post); c != 0 {
		return c
	}
	if c := compareKey(a.devKey(), b.devKey()); c != 0 {
		return c
	}
	return compareLocal(a.Local, b.Local)
}

// Latest returns the greatest of vs, or nil when vs is empty.
func Latest(vs ...*Version) *Version {
	if len(vs) == 0 {
		return nil
	}
	return slices.MaxFunc(vs, Compare)
}

// key orders optional components: rank -1 sorts before every value, +1
// after every value.
type key struct {
	rank  int
	phase int
	n     int
}

func compareKey(a, b key) int {
	if c := cmp.Compare(a.rank, b.rank); c != 0 {
		return c
	}
	if c := cmp.Compare(a.phase, b.phase); c != 0 {
		return c
	}
	return cmp.Compare(a.n, b.n)
}

var phaseOrder = map[string]int{PhaseAlpha: 0, PhaseBeta: 1, PhaseRC: 2}

func (v *Version) preKey() key {
	switch {
	case v.Phase == "" && v.Post < 0 && v.Dev >= 0:
		// 1.0.dev0 sorts before 1.0a0
		return key{rank: -1}
	case v.Phase == "":
		return key{rank: 1}
	}
	return key{phase: phaseOrder[v.Phase], n: v.PreN}
}

func (v *Version) devKey() key {
	if v.Dev < 0 {
		return key{rank: 1}
	}
	return key{n: v.Dev}
}

func compareRelease(a, b []int) int {
	a, b = trimZeros(a), trimZeros(b)
	for i := range max(len(a), len(b)) {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func trimZeros(r []int) []int {
	for len(r) > 0 && r[len(r)-1] == 0 {
		r = r[:len(r)-1]
	}
	return r
}

// compareLocal orders local labels: absent sorts first, numeric segments
// beat alphanumeric ones, and a longer label wins a shared prefix.
func compareLocal(a, b []string) int {
	for i := range min(len(a), len(b)) {
		x, xErr := strconv.Atoi(a[i])
		y, yErr := strconv.Atoi(b[i])
		var c int
		switch {
		case xErr == nil && yErr == nil:
			c = cmp.Compare(x, y)
		case xErr == nil:
			c = 1
		case yErr == nil:
			c = -1
		default:
			c = cmp.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
