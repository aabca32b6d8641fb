package pacman

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultLogPath is where pacman writes its transaction log.
const DefaultLogPath = "/var/log/pacman.log"

// ErrNoUpgrade is returned when the log holds no full system upgrade.
var ErrNoUpgrade = errors.New("no full system upgrade found in pacman log")

const upgradeMarker = "starting full system upgrade"

// Timestamp layouts used by pacman over the years.
var logLayouts = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04",
}

// LastFullUpgrade returns the time of the most recent "starting full system
// upgrade" entry in the pacman log at path.
func LastFullUpgrade(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open pacman log: %w", err)
	}
	defer f.Close()
	return ParseLastFullUpgrade(f)
}

// ParseLastFullUpgrade scans a pacman log for the last full upgrade.
func ParseLastFullUpgrade(r io.Reader) (time.Time, error) {
	var last string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, upgradeMarker) {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("failed to read pacman log: %w", err)
	}
	if last == "" {
		return time.Time{}, ErrNoUpgrade
	}

	stamp, ok := logTimestamp(last)
	if !ok {
		return time.Time{}, fmt.Errorf("malformed pacman log line %q", last)
	}
	for _, layout := range logLayouts {
		if t, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse pacman log timestamp %q", stamp)
}

func logTimestamp(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") {
		return "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "", false
	}
	return line[1:end], true
}
