package pacman

import (
	"errors"
	"regexp"
	"strings"

	"archupdates/internal/executor"
)

var (
	// ErrLockTimeout is returned when the sync cache lock could not be
	// acquired before the context expired.
	ErrLockTimeout = errors.New("timed out waiting for sync cache lock")

	// ErrNoSnapshot is returned when the private sync databases have never
	// been populated.
	ErrNoSnapshot = errors.New("sync cache has not been populated")

	// ErrUnsafeCacheDir is returned when the private dbpath is the system
	// dbpath or lies inside it.
	ErrUnsafeCacheDir = errors.New("sync cache directory overlaps the system dbpath")
)

// ErrorType represents the category of a pacman failure.
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorDatabaseLocked
	ErrorNetwork
	ErrorDatabaseInvalid
	ErrorPermission
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorDatabaseLocked:
		return "database locked"
	case ErrorNetwork:
		return "network"
	case ErrorDatabaseInvalid:
		return "invalid database"
	case ErrorPermission:
		return "permission denied"
	}
	return "unknown"
}

// Error represents a structured error from pacman.
type Error struct {
	Type        ErrorType
	RawOutput   string
	Databases   []string // Affected sync databases
	OriginalErr error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.OriginalErr != nil {
		return e.OriginalErr.Error()
	}
	return strings.TrimSpace(e.RawOutput)
}

// Unwrap returns the original error.
func (e *Error) Unwrap() error {
	return e.OriginalErr
}

// Locked reports whether pacman refused to run because its database lock
// was held.
func (e *Error) Locked() bool {
	return e.Type == ErrorDatabaseLocked
}

// Regular expressions for parsing pacman errors
var (
	// Matches: "error: failed to init transaction (unable to lock database)"
	// and "error: failed to synchronize all databases (unable to lock database)"
	dbLockedPattern = regexp.MustCompile(`unable to lock database`)

	// Matches: "error: failed retrieving file 'core.db' from mirror : Could not resolve host"
	retrievePattern = regexp.MustCompile(`failed retrieving file '([^']+)'`)

	// Matches: "error: failed to synchronize all databases (unexpected error)"
	// and "error: failed to update core (download library error)"
	networkPattern = regexp.MustCompile(`(download library error|Could not resolve host|Connection timed out|Operation too slow|failed to synchronize all databases)`)

	// Matches: "error: could not open file /tmp/x/sync/core.db: Unrecognized archive format"
	// and "error: database 'core' is not valid (invalid or corrupted database)"
	invalidDBPattern = regexp.MustCompile(`database '([^']+)' is not valid|Unrecognized archive format|could not open database`)

	// Matches: "error: you cannot perform this operation unless you are root."
	permissionPattern = regexp.MustCompile(`cannot perform this operation unless you are root|Permission denied`)
)

// ParseError classifies pacman stderr output. It returns nil when the output
// does not match a known failure.
func ParseError(stderr string, originalErr error) *Error {
	if stderr == "" && originalErr == nil {
		return nil
	}

	pacErr := &Error{
		Type:        ErrorUnknown,
		RawOutput:   stderr,
		OriginalErr: originalErr,
	}

	switch {
	case dbLockedPattern.MatchString(stderr):
		pacErr.Type = ErrorDatabaseLocked
	case permissionPattern.MatchString(stderr):
		pacErr.Type = ErrorPermission
	case invalidDBPattern.MatchString(stderr):
		pacErr.Type = ErrorDatabaseInvalid
		for _, m := range invalidDBPattern.FindAllStringSubmatch(stderr, -1) {
			if len(m) > 1 && m[1] != "" {
				pacErr.Databases = append(pacErr.Databases, m[1])
			}
		}
	case retrievePattern.MatchString(stderr) || networkPattern.MatchString(stderr):
		pacErr.Type = ErrorNetwork
		for _, m := range retrievePattern.FindAllStringSubmatch(stderr, -1) {
			pacErr.Databases = appendUnique(pacErr.Databases, m[1])
		}
	default:
		return nil
	}

	return pacErr
}

// classify converts an executor failure into a *Error when the stderr is
// recognized, and returns err unchanged otherwise.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr *executor.CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}
	if pacErr := ParseError(cmdErr.Stderr, err); pacErr != nil {
		return pacErr
	}
	return err
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
