package update

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidConstraint is returned when a constraint expression cannot be parsed.
var ErrInvalidConstraint = errors.New("invalid version constraint")

type op int

const (
	opExact op = iota
	opGreater
	opGreaterEq
	opLess
	opLessEq
	opTilde
	opCaret
	opWildcard
)

// Operators in match order; two-character operators first.
var opPrefixes = []struct {
	prefix string
	op     op
}{
	{">=", opGreaterEq},
	{"<=", opLessEq},
	{">", opGreater},
	{"<", opLess},
	{"=", opExact},
	{"~", opTilde},
	{"^", opCaret},
}

// comparator is one clause of a constraint. Minor and patch may be absent
// ("^1", "~1.2", "1.*").
type comparator struct {
	op       op
	major    uint64
	minor    uint64
	patch    uint64
	hasMinor bool
	hasPatch bool
	pre      string
}

// Constraint is an immutable predicate over versions, e.g. "*", "^1.2",
// ">=2.0, <3.0". Comparators are joined with commas and must all match.
type Constraint struct {
	raw         string
	comparators []comparator
}

// AnyVersion is the wildcard constraint.
func AnyVersion() Constraint {
	return Constraint{raw: "*"}
}

// ParseConstraint parses a constraint expression. Supported forms:
// "*", "=1.2.3", ">1.2", ">=1", "<2.0.0", "<=1.4", "~1.2", "^1.2.3",
// bare "1.2" (same as caret) and wildcards "1.*", "1.2.x".
func ParseConstraint(s string) (Constraint, error) {
	raw := strings.TrimSpace(s)
	if raw == "" || raw == "*" {
		return AnyVersion(), nil
	}

	c := Constraint{raw: raw}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Constraint{}, fmt.Errorf("%w: %q: empty comparator", ErrInvalidConstraint, s)
		}
		cmp, any, err := parseComparator(part)
		if err != nil {
			return Constraint{}, fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, s, err)
		}
		if !any {
			c.comparators = append(c.comparators, cmp)
		}
	}
	return c, nil
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the expression the constraint was parsed from.
func (c Constraint) String() string {
	if c.raw == "" {
		return "*"
	}
	return c.raw
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Matches reports whether v satisfies every comparator. A pre-release
// version only matches when some comparator names the same
// major.minor.patch with a pre-release of its own.
func (c Constraint) Matches(v Version) bool {
	for _, cmp := range c.comparators {
		if !cmp.matches(v) {
			return false
		}
	}
	if v.Prerelease == "" {
		return true
	}
	for _, cmp := range c.comparators {
		if cmp.allowsPrereleaseOf(v) {
			return true
		}
	}
	return false
}

// parseComparator parses a single clause. any is true for a bare "*".
func parseComparator(s string) (cmp comparator, any bool, err error) {
	cmp.op = opCaret
	explicit := false
	for _, p := range opPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			cmp.op = p.op
			explicit = true
			s = strings.TrimSpace(s[len(p.prefix):])
			break
		}
	}
	if s == "" {
		return cmp, false, fmt.Errorf("missing version")
	}
	if isWildcard(s) {
		if explicit && cmp.op != opExact {
			return cmp, false, fmt.Errorf("wildcard not allowed after operator")
		}
		return cmp, true, nil
	}

	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		cmp.pre = s[i+1:]
		s = s[:i]
		if !semver.IsValid("v0.0.0-" + cmp.pre) {
			return cmp, false, fmt.Errorf("invalid pre-release %q", cmp.pre)
		}
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return cmp, false, fmt.Errorf("too many components in %q", s)
	}
	wild := false
	for i, p := range parts {
		if isWildcard(p) {
			if i == 0 {
				return cmp, false, fmt.Errorf("wildcard major in %q", s)
			}
			wild = true
			continue
		}
		if wild {
			return cmp, false, fmt.Errorf("number after wildcard in %q", s)
		}
		n, err := parseComponent(p)
		if err != nil {
			return cmp, false, err
		}
		switch i {
		case 0:
			cmp.major = n
		case 1:
			cmp.minor, cmp.hasMinor = n, true
		case 2:
			cmp.patch, cmp.hasPatch = n, true
		}
	}

	if wild {
		if explicit && cmp.op != opExact {
			return cmp, false, fmt.Errorf("wildcard not allowed after operator")
		}
		cmp.op = opWildcard
	}
	if cmp.pre != "" && !cmp.hasPatch {
		return cmp, false, fmt.Errorf("pre-release requires major.minor.patch")
	}
	return cmp, false, nil
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

func parseComponent(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version component")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version component %q", s)
	}
	return n, nil
}

func (c comparator) matches(v Version) bool {
	switch c.op {
	case opExact, opWildcard:
		return c.matchesExact(v)
	case opGreater:
		return c.matchesGreater(v)
	case opGreaterEq:
		return c.matchesExact(v) || c.matchesGreater(v)
	case opLess:
		return c.matchesLess(v)
	case opLessEq:
		return c.matchesExact(v) || c.matchesLess(v)
	case opTilde:
		return c.matchesTilde(v)
	case opCaret:
		return c.matchesCaret(v)
	}
	return false
}

func (c comparator) matchesExact(v Version) bool {
	if v.Major != c.major {
		return false
	}
	if c.hasMinor && v.Minor != c.minor {
		return false
	}
	if c.hasPatch && v.Patch != c.patch {
		return false
	}
	return v.Prerelease == c.pre
}

func (c comparator) matchesGreater(v Version) bool {
	if v.Major != c.major {
		return v.Major > c.major
	}
	if !c.hasMinor {
		return false
	}
	if v.Minor != c.minor {
		return v.Minor > c.minor
	}
	if !c.hasPatch {
		return false
	}
	if v.Patch != c.patch {
		return v.Patch > c.patch
	}
	return comparePrerelease(v.Prerelease, c.pre) > 0
}

func (c comparator) matchesLess(v Version) bool {
	if v.Major != c.major {
		return v.Major < c.major
	}
	if !c.hasMinor {
		return false
	}
	if v.Minor != c.minor {
		return v.Minor < c.minor
	}
	if !c.hasPatch {
		return false
	}
	if v.Patch != c.patch {
		return v.Patch < c.patch
	}
	return comparePrerelease(v.Prerelease, c.pre) < 0
}

// ~1.2.3 := >=1.2.3, <1.3.0; ~1.2 := >=1.2.0, <1.3.0; ~1 := >=1.0.0, <2.0.0
func (c comparator) matchesTilde(v Version) bool {
	if v.Major != c.major {
		return false
	}
	if c.hasMinor && v.Minor != c.minor {
		return false
	}
	if c.hasPatch && v.Patch != c.patch {
		return v.Patch > c.patch
	}
	return comparePrerelease(v.Prerelease, c.pre) >= 0
}

// ^1.2.3 := >=1.2.3, <2.0.0; ^0.2.3 := >=0.2.3, <0.3.0; ^0.0.3 := =0.0.3
func (c comparator) matchesCaret(v Version) bool {
	if v.Major != c.major {
		return false
	}
	if !c.hasMinor {
		return true
	}
	if !c.hasPatch {
		if c.major > 0 {
			return v.Minor >= c.minor
		}
		return v.Minor == c.minor
	}

	switch {
	case c.major > 0:
		if v.Minor != c.minor {
			return v.Minor > c.minor
		}
		if v.Patch != c.patch {
			return v.Patch > c.patch
		}
	case c.minor > 0:
		if v.Minor != c.minor {
			return false
		}
		if v.Patch != c.patch {
			return v.Patch > c.patch
		}
	default:
		if v.Minor != c.minor || v.Patch != c.patch {
			return false
		}
	}
	return comparePrerelease(v.Prerelease, c.pre) >= 0
}

func (c comparator) allowsPrereleaseOf(v Version) bool {
	return c.pre != "" &&
		c.major == v.Major &&
		c.hasMinor && c.minor == v.Minor &&
		c.hasPatch && c.patch == v.Patch
}
