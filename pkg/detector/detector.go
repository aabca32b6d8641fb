// Package detector identifies the running distribution and the pacman
// architecture name of the machine.
package detector

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// osReleasePath is read by Detect; tests point it elsewhere.
var osReleasePath = "/etc/os-release"

// archFamily lists distributions that ship pacman and the Arch repositories
// or a derivative of them.
var archFamily = []string{
	"arch", "archarm", "manjaro", "endeavouros", "garuda", "arcolinux",
	"artix", "cachyos", "rebornos", "blendos", "parabola", "steamos",
}

// goarchToPacman maps Go architecture names to pacman's.
var goarchToPacman = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7h",
	"riscv64": "riscv64",
	"loong64": "loong64",
	"ppc64le": "powerpc64le",
}

// SystemInfo contains information about the detected system.
type SystemInfo struct {
	GoArch       string
	Arch         string   // pacman architecture name, e.g. "x86_64"
	Distribution string   // ID from os-release, e.g. "arch"
	DistroFamily []string // ID_LIKE from os-release
	PrettyName   string
	VersionID    string
}

// Detect reads os-release and maps the runtime architecture. A missing
// os-release is not an error; Distribution is then "unknown".
func Detect() (*SystemInfo, error) {
	info := &SystemInfo{
		GoArch: runtime.GOARCH,
		Arch:   PacmanArch(runtime.GOARCH),
	}

	if err := parseOSRelease(osReleasePath, info); err != nil {
		if !os.IsNotExist(err) {
			return info, err
		}
		if _, statErr := os.Stat("/etc/arch-release"); statErr == nil {
			info.Distribution = "arch"
			info.PrettyName = "Arch Linux"
		} else {
			info.Distribution = "unknown"
			info.PrettyName = "Unknown Linux"
		}
	}
	return info, nil
}

// PacmanArch returns pacman's name for a Go architecture. Unknown values are
// returned unchanged.
func PacmanArch(goarch string) string {
	if arch, ok := goarchToPacman[goarch]; ok {
		return arch
	}
	return goarch
}

// MatchesDistro checks if the system matches any of the given distribution identifiers.
// It checks both the direct distribution ID and the ID_LIKE family.
func (s *SystemInfo) MatchesDistro(distros ...string) bool {
	for _, d := range distros {
		if s.Distribution == d {
			return true
		}
		for _, family := range s.DistroFamily {
			if family == d {
				return true
			}
		}
	}
	return false
}

// IsArchFamily reports whether the system is Arch Linux or a derivative.
func (s *SystemInfo) IsArchFamily() bool {
	return s.MatchesDistro(archFamily...)
}

func parseOSRelease(path string, info *SystemInfo) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		switch key {
		case "ID":
			info.Distribution = value
		case "ID_LIKE":
			info.DistroFamily = strings.Fields(value)
		case "VERSION_ID":
			info.VersionID = value
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}

	return scanner.Err()
}
