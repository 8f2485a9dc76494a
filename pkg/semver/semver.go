// Package semver handles the version stamps written next to stored data.
package semver

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Version is a MAJOR.MINOR.PATCH version with optional prerelease and build tags
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// Parse parses a version such as "1.2.0", "v1.2.0-rc.1" or "1.2.0+build.5"
func Parse(s string) (Version, error) {
	var v Version
	var hasBuild, hasPre bool
	rest := strings.TrimPrefix(s, "v")
	rest, v.Build, hasBuild = strings.Cut(rest, "+")
	rest, v.Prerelease, hasPre = strings.Cut(rest, "-")
	if hasBuild && v.Build == "" || hasPre && v.Prerelease == "" {
		return Version{}, fmt.Errorf("invalid semantic version: %s", s)
	}

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid semantic version: %s", s)
	}
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || strings.TrimLeft(p, "0123456789") != "" {
			return Version{}, fmt.Errorf("invalid semantic version: %s", s)
		}
		*nums[i] = n
	}
	return v, nil
}

// MustParse is Parse for constants; it panics on error
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

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

// Compare returns -1, 0 or 1 as v sorts before, with or after other.
// Build tags are ignored and a release sorts after its prereleases.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, other.Patch); c != 0 {
		return c
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	}
	return strings.Compare(v.Prerelease, other.Prerelease)
}

// Reads reports whether code at version v can read data stamped with stored.
// The major versions must match and stored must not come from a newer minor
// version; patch releases never change the layout.
func (v Version) Reads(stored Version) bool {
	if v.Major != stored.Major {
		return false
	}
	layout := Version{Major: stored.Major, Minor: stored.Minor}
	return layout.Compare(Version{Major: v.Major, Minor: v.Minor}) <= 0
}
