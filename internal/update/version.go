package update

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a string is not a full semantic version.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a semantic version (major.minor.patch[-pre][+build]).
// Ordering follows semver precedence; build metadata is ignored.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string // without the leading '-'
	Build      string // without the leading '+'
}

// NewVersion builds a release version from its numeric triple.
func NewVersion(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a user-supplied version such as --current. Surrounding
// whitespace and a leading "v" are accepted; all three numeric components
// are required.
func ParseVersion(s string) (Version, error) {
	return parseVersion(strings.TrimPrefix(strings.TrimSpace(s), "v"), s)
}

// ParseTag parses a release tag strictly: the tag must be a bare semantic
// version, so "v1.2.3" and padded tags are rejected.
func ParseTag(tag string) (Version, error) {
	return parseVersion(tag, tag)
}

func parseVersion(raw, s string) (Version, error) {
	if raw == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}
	// x/mod/semver validates identifiers and rejects leading zeros
	if !semver.IsValid("v" + raw) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var v Version
	core := raw
	if i := strings.IndexByte(core, '+'); i >= 0 {
		v.Build = core[i+1:]
		core = core[:i]
	}
	if i := strings.IndexByte(core, '-'); i >= 0 {
		v.Prerelease = core[i+1:]
		core = core[:i]
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q must have major.minor.patch", ErrInvalidVersion, s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version without a "v" prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// semver returns the form understood by golang.org/x/mod/semver.
func (v Version) semver() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare returns -1, 0 or +1 by semver precedence.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.semver(), o.semver())
}

// GreaterThan reports whether v has strictly higher precedence than o.
func (v Version) GreaterThan(o Version) bool {
	return v.Compare(o) > 0
}

// IsPrerelease reports whether the version carries a pre-release tag.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// comparePrerelease orders pre-release strings; an empty one (a release)
// ranks above any pre-release.
func comparePrerelease(a, b string) int {
	pa, pb := "v0.0.0", "v0.0.0"
	if a != "" {
		pa += "-" + a
	}
	if b != "" {
		pb += "-" + b
	}
	return semver.Compare(pa, pb)
}
