package aur

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ArchValue is a .SRCINFO value that may be restricted to one architecture.
// Arch is empty for values that apply everywhere.
type ArchValue struct {
	Arch  string
	Value string
}

// ArchList holds the values of a field that accepts _<arch> suffixes, such as
// source and source_x86_64, in file order.
type ArchList []ArchValue

// For returns the values that apply on arch: the arch-independent entries
// and the entries for arch, in file order.
func (l ArchList) For(arch string) []string {
	var values []string
	for _, v := range l {
		if v.Arch == "" || v.Arch == arch {
			values = append(values, v.Value)
		}
	}
	return values
}

// SRCINFO holds the package base fields of a .SRCINFO file that the devel
// check reads. Package sections of split packages are skipped.
type SRCINFO struct {
	PkgBase string
	PkgVer  string
	Source  ArchList
}

// ParseSRCINFOContent parses .SRCINFO content from a string.
func ParseSRCINFOContent(content string) (*SRCINFO, error) {
	return ParseSRCINFOReader(strings.NewReader(content))
}

// ParseSRCINFOReader parses .SRCINFO from r.
func ParseSRCINFOReader(r io.Reader) (*SRCINFO, error) {
	info := &SRCINFO{}
	inPackage := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Everything after the first pkgname belongs to a package section.
		if key == "pkgname" {
			inPackage = true
		}
		if inPackage {
			continue
		}

		field, arch := splitArch(key)
		switch field {
		case "pkgbase":
			info.PkgBase = value
		case "pkgver":
			info.PkgVer = value
		case "source":
			info.Source = append(info.Source, ArchValue{Arch: arch, Value: value})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading .SRCINFO: %w", err)
	}

	return info, nil
}

// archFields are the keys makepkg allows an _<arch> suffix on.
var archFields = []string{
	"source", "depends", "makedepends", "checkdepends", "optdepends",
	"provides", "conflicts", "replaces",
	"md5sums", "sha1sums", "sha224sums", "sha256sums", "sha384sums", "sha512sums", "b2sums", "cksums",
}

// splitArch splits "source_x86_64" into ("source", "x86_64").
func splitArch(key string) (string, string) {
	for _, field := range archFields {
		if strings.HasPrefix(key, field+"_") && len(key) > len(field)+1 {
			return field, key[len(field)+1:]
		}
	}
	return key, ""
}

// Sources returns the source entries that apply on arch.
func (s *SRCINFO) Sources(arch string) []string {
	return s.Source.For(arch)
}
