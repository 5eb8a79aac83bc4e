package ziputil

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobFilter builds an Options.Filter from doublestar patterns. An entry is
// kept when it matches any include pattern (or include is empty) and no
// exclude pattern. Directory entries are matched without their trailing
// slash.
func GlobFilter(include, exclude []string) (func(Entry) bool, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	return func(e Entry) bool {
		name := trimDirSuffix(e.Name)
		if len(include) > 0 && !matchAny(include, name) {
			return false
		}
		return !matchAny(exclude, name)
	}, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func trimDirSuffix(name string) string {
	for len(name) > 0 && (name[len(name)-1] == '/' || name[len(name)-1] == '\\') {
		name = name[:len(name)-1]
	}
	return name
}
