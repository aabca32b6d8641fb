// Package vercmp compares package versions using pacman's ordering rules.
//
// The algorithm follows libalpm's alpm_pkg_vercmp: versions have the form
// [epoch:]pkgver[-pkgrel], epochs compare first, then pkgver, then pkgrel when
// both sides carry one. Segments are compared the way rpmvercmp does.
package vercmp

import "strings"

// Version is a parsed epoch:pkgver-pkgrel triple.
type Version struct {
	Epoch  string
	Pkgver string
	Pkgrel string // empty when the version has no release part
}

// Parse splits a full version string into its components.
// A missing epoch is reported as "0".
func Parse(v string) Version {
	return parseEVR(v).Version
}

// String reassembles the version. The epoch is omitted when it is "0".
func (v Version) String() string {
	var sb strings.Builder
	if v.Epoch != "" && v.Epoch != "0" {
		sb.WriteString(v.Epoch)
		sb.WriteByte(':')
	}
	sb.WriteString(v.Pkgver)
	if v.Pkgrel != "" {
		sb.WriteByte('-')
		sb.WriteString(v.Pkgrel)
	}
	return sb.String()
}

// Compare returns -1 if a is older than b, 0 if they are equivalent and 1 if
// a is newer than b.
func Compare(a, b string) int {
	if a == b {
		return 0
	}

	va := parseEVR(a)
	vb := parseEVR(b)

	ret := segments(va.Epoch, vb.Epoch)
	if ret == 0 {
		ret = segments(va.Pkgver, vb.Pkgver)
		if ret == 0 && va.hasRel && vb.hasRel {
			ret = segments(va.Pkgrel, vb.Pkgrel)
		}
	}
	return ret
}

// Newer reports whether candidate is strictly newer than installed.
func Newer(candidate, installed string) bool {
	return Compare(candidate, installed) > 0
}

type evr struct {
	Version
	hasRel bool
}

// parseEVR mirrors libalpm's parseEVR, keeping track of whether a pkgrel was
// present at all so that "1.0" and "1.0-3" compare equal.
func parseEVR(s string) evr {
	// A leading run of digits followed by ':' is the epoch. The release
	// separator is searched for after those digits only.
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	se := strings.LastIndexByte(s[i:], '-')
	if se >= 0 {
		se += i
	}

	var out evr
	versionStart := 0
	if i < len(s) && s[i] == ':' {
		out.Epoch = s[:i]
		if out.Epoch == "" {
			out.Epoch = "0"
		}
		versionStart = i + 1
	} else {
		out.Epoch = "0"
	}

	if se >= 0 && se >= versionStart {
		out.Pkgver = s[versionStart:se]
		out.Pkgrel = s[se+1:]
		out.hasRel = true
	} else {
		out.Pkgver = s[versionStart:]
	}
	return out
}

// segments is rpmvercmp: compare alternating runs of digits and letters,
// ignoring the separators between them except for their length.
func segments(a, b string) int {
	if a == b {
		return 0
	}

	one, two := 0, 0
	ptr1, ptr2 := 0, 0

	for one < len(a) && two < len(b) {
		for one < len(a) && !isAlnum(a[one]) {
			one++
		}
		for two < len(b) && !isAlnum(b[two]) {
			two++
		}

		if one >= len(a) || two >= len(b) {
			break
		}

		// Different separator lengths decide the comparison.
		if one-ptr1 != two-ptr2 {
			if one-ptr1 < two-ptr2 {
				return -1
			}
			return 1
		}

		ptr1, ptr2 = one, two

		isNum := isDigit(a[ptr1])
		if isNum {
			for ptr1 < len(a) && isDigit(a[ptr1]) {
				ptr1++
			}
			for ptr2 < len(b) && isDigit(b[ptr2]) {
				ptr2++
			}
		} else {
			for ptr1 < len(a) && isAlpha(a[ptr1]) {
				ptr1++
			}
			for ptr2 < len(b) && isAlpha(b[ptr2]) {
				ptr2++
			}
		}

		// Segments of different types: numeric is newer than alpha.
		if two == ptr2 {
			if isNum {
				return 1
			}
			return -1
		}

		segA := a[one:ptr1]
		segB := b[two:ptr2]

		if isNum {
			segA = strings.TrimLeft(segA, "0")
			segB = strings.TrimLeft(segB, "0")
			if len(segA) > len(segB) {
				return 1
			}
			if len(segB) > len(segA) {
				return -1
			}
		}

		if c := strings.Compare(segA, segB); c != 0 {
			return c
		}

		one, two = ptr1, ptr2
	}

	restA := a[one:]
	restB := b[two:]

	if restA == "" && restB == "" {
		return 0
	}

	// A remaining alpha segment never beats an empty remainder.
	if (restA == "" && !startsAlpha(restB)) || startsAlpha(restA) {
		return -1
	}
	return 1
}

func startsAlpha(s string) bool {
	return s != "" && isAlpha(s[0])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isDigit(c) || isAlpha(c)
}
