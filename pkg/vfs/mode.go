package vfs

import (
	"strings"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// Mode is a parsed open-mode string. Modes use the conventional
// letters: 'r' read, 'w' write, 'a' append, 'x' exclusive create,
// '+' read-write upgrade, 'b'/'t' binary or text markers.
type Mode struct {
	s string
}

// ParseMode validates a mode string. A mode must contain exactly one
// of r, w, a or x, and must not combine t with b.
func ParseMode(mode string) (Mode, error) {
	if mode == "" {
		return Mode{}, fserrors.InvalidPath(mode, "mode is empty")
	}
	for _, c := range mode {
		if !strings.ContainsRune("rwxab+t", c) {
			return Mode{}, fserrors.InvalidPath(mode, "mode '"+mode+"' contains invalid characters")
		}
	}
	if strings.Contains(mode, "t") && strings.Contains(mode, "b") {
		return Mode{}, fserrors.InvalidPath(mode, "mode can't be binary ('b') and text ('t')")
	}
	count := 0
	for _, c := range "rwax" {
		if strings.ContainsRune(mode, c) {
			count++
		}
	}
	if count != 1 {
		return Mode{}, fserrors.InvalidPath(mode, "mode must contain exactly one of 'rwax'")
	}
	return Mode{s: mode}, nil
}

func (m Mode) String() string { return m.s }

// Reading reports whether the file may be read.
func (m Mode) Reading() bool {
	return strings.ContainsAny(m.s, "r+")
}

// Writing reports whether the file may be written.
func (m Mode) Writing() bool {
	return strings.ContainsAny(m.s, "wax+")
}

// Appending reports whether writes go to the end of the file.
func (m Mode) Appending() bool {
	return strings.Contains(m.s, "a")
}

// Create reports whether a missing file should be created.
func (m Mode) Create() bool {
	return strings.ContainsAny(m.s, "wax")
}

// Exclusive reports whether an existing file is an error.
func (m Mode) Exclusive() bool {
	return strings.Contains(m.s, "x")
}

// Truncate reports whether an existing file is emptied on open.
func (m Mode) Truncate() bool {
	return strings.Contains(m.s, "w")
}
