// Package version parses and orders Python package versions following
// PEP 440.
//
// Versions come from two places: the version token of a declaration
// ("Django==4.1.0") and the latest release reported by the registry. Both
// go through [Parse] so they compare with the same rules, including
// pre-releases, post-releases, dev releases, epochs and local labels:
//
//	1.0.dev1 < 1.0a1 < 1.0b2 < 1.0rc1 < 1.0 < 1.0.post1 < 1!0.1
//
// The original text is kept so that rewriting a declaration never changes
// how the user spelled the unchanged parts of it.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pep440RE = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|beta|preview|pre|rc|a|b|c)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?\s*$`)

// Pre-release phases in ascending order.
const (
	PhaseAlpha = "a"
	PhaseBeta  = "b"
	PhaseRC    = "rc"
)

// Version is a parsed PEP 440 version. The zero value is not valid; use
// [Parse].
type Version struct {
	Epoch   int
	Release []int
	Phase   string // pre-release phase, empty for final releases
	PreN    int
	Post    int // -1 when absent
	Dev     int // -1 when absent
	Local   []string

	raw string
}

// ErrInvalid is wrapped by every [Parse] failure.
var ErrInvalid = fmt.Errorf("invalid version")

// Parse parses s as a PEP 440 version. Wildcards ("1.2.*") and arbitrary
// strings are rejected.
func Parse(s string) (*Version, error) {
	m := pep440RE.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	group := func(name string) string { return m[pep440RE.SubexpIndex(name)] }

	v := &Version{Post: -1, Dev: -1, raw: strings.TrimSpace(s)}
	var numErr error
	num := func(s string) int {
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil && numErr == nil {
			numErr = fmt.Errorf("%w: %q: component %s out of range", ErrInvalid, v.raw, s)
		}
		return n
	}
	if e := group("epoch"); e != "" {
		v.Epoch = num(e)
	}
	for _, part := range strings.Split(group("release"), ".") {
		v.Release = append(v.Release, num(part))
	}
	if group("pre") != "" {
		v.Phase = normalizePhase(group("pre_l"))
		v.PreN = num(group("pre_n"))
	}
	if group("post") != "" {
		if n := group("post_n1"); n != "" {
			v.Post = num(n)
		} else {
			v.Post = num(group("post_n2"))
		}
	}
	if group("dev") != "" {
		v.Dev = num(group("dev_n"))
	}
	if numErr != nil {
		return nil, numErr
	}
	if l := group("local"); l != "" {
		v.Local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
	}
	return v, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// constants.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was written.
func (v *Version) String() string { return v.raw }

// MarshalText encodes the version as written, so JSON reports show "4.2.0"
// rather than the parsed fields.
func (v *Version) MarshalText() ([]byte, error) { return []byte(v.raw), nil }

// UnmarshalText parses text with [Parse].
func (v *Version) UnmarshalText(text []byte) error {
	p, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = *p
	return nil
}

// Canonical returns the PEP 440 normalized form, e.g. "1.0rc1.post2".
func (v *Version) Canonical() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, n := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if v.Phase != "" {
		fmt.Fprintf(&b, "%s%d", v.Phase, v.PreN)
	}
	if v.Post >= 0 {
		fmt.Fprintf(&b, ".post%d", v.Post)
	}
	if v.Dev >= 0 {
		fmt.Fprintf(&b, ".dev%d", v.Dev)
	}
	if len(v.Local) > 0 {
		b.WriteString("+" + strings.Join(v.Local, "."))
	}
	return b.String()
}

// IsPrerelease reports whether v is an alpha, beta, rc or dev release.
func (v *Version) IsPrerelease() bool { return v.Phase != "" || v.Dev >= 0 }

// LessThan reports whether v sorts before o.
func (v *Version) LessThan(o *Version) bool { return Compare(v, o) < 0 }

// GreaterThan reports whether v sorts after o.
func (v *Version) GreaterThan(o *Version) bool { return Compare(v, o) > 0 }

// Equal reports whether v and o are the same release ("1.0" equals "1.0.0").
func (v *Version) Equal(o *Version) bool { return Compare(v, o) == 0 }

func normalizePhase(l string) string {
	switch strings.ToLower(l) {
	case "a", "alpha":
		return PhaseAlpha
	case "b", "beta":
		return PhaseBeta
	default:
		return PhaseRC
	}
}
