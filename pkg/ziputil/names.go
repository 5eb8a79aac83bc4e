package ziputil

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 255

// checkName applies the name-level safety rules to an entry name.
func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidName)
	case utf8.RuneCountInString(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	case strings.Contains(name, "../"), strings.Contains(name, `..\`), name == "..":
		return fmt.Errorf("%w: %q contains a parent directory reference", ErrPathTraversal, name)
	case isAbsName(name):
		return fmt.Errorf("%w: %q is an absolute path", ErrPathTraversal, name)
	}
	return nil
}

// isAbsName reports absolute names in both slash styles, including Windows
// drive letters, regardless of the host OS.
func isAbsName(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return true
	}
	if len(name) >= 2 && name[1] == ':' {
		c := name[0]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			return true
		}
	}
	return filepath.IsAbs(name)
}

// isDirName reports whether an entry name denotes a directory.
func isDirName(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`)
}

// within reports whether path is root or inside it. Both must be clean and
// absolute.
func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
