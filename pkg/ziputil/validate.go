package ziputil

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
)

// Kind is the kind of WordPress package an archive is expected to contain.
type Kind string

const (
	KindTheme   Kind = "theme"
	KindPlugin  Kind = "plugin"
	KindGeneric Kind = "generic"
)

// ParseKind parses a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTheme, KindPlugin, KindGeneric:
		return k, nil
	case "":
		return KindGeneric, nil
	default:
		return "", fmt.Errorf("unknown archive kind %q (want theme, plugin or generic)", s)
	}
}

var executableExts = []string{".exe", ".bat", ".cmd", ".scr", ".pif"}

// Metadata describes an archive's layout.
type Metadata struct {
	Kind      Kind     `json:"kind"`
	RootDir   string   `json:"root_dir,omitempty"`
	RootDirs  []string `json:"root_dirs"`
	FileCount int      `json:"file_count"`
	DirCount  int      `json:"dir_count"`
	TotalSize uint64   `json:"total_size"`
}

// Report is the outcome of ValidateWordPressZip. An archive is valid when
// Errors is empty; warnings never affect validity.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Metadata Metadata `json:"metadata"`
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateWordPressZip inspects an archive's entry list, without extracting
// it, against the conventions for the given kind using the default limits.
// The error return is reserved for archives that cannot be opened.
func ValidateWordPressZip(archivePath string, kind Kind) (*Report, error) {
	return validateArchive(archivePath, kind, DefaultLimits())
}

// Validate is ValidateWordPressZip using the extractor's limits.
func (x *Extractor) Validate(archivePath string, kind Kind) (*Report, error) {
	return validateArchive(archivePath, kind, x.limits)
}

func validateArchive(archivePath string, kind Kind, limits Limits) (*Report, error) {
	limits = limits.orDefaults(DefaultLimits())
	if kind == "" {
		kind = KindGeneric
	}

	report := &Report{
		Errors:   []string{},
		Warnings: []string{},
		Metadata: Metadata{Kind: kind, RootDirs: []string{}},
	}

	var (
		entries      int
		hasStyle     bool
		hasIndex     bool
		hasPluginPHP bool
	)

	for e, err := range ListEntries(archivePath) {
		if err != nil {
			return nil, err
		}
		entries++

		if err := checkName(e.Name); err != nil {
			report.errorf("unsafe entry: %v", err)
			continue
		}

		name := strings.ReplaceAll(e.Name, `\`, "/")
		isDir := e.IsDir || strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")

		if root, _, nested := strings.Cut(name, "/"); nested || isDir {
			if !slices.Contains(report.Metadata.RootDirs, root) {
				report.Metadata.RootDirs = append(report.Metadata.RootDirs, root)
			}
		}

		if isDir {
			report.Metadata.DirCount++
			continue
		}

		report.Metadata.FileCount++
		report.Metadata.TotalSize += e.UncompressedSize

		if ext := strings.ToLower(path.Ext(name)); slices.Contains(executableExts, ext) {
			report.warnf("executable file %s", e.Name)
		}

		if ok, _ := doublestar.Match("**/style.css", name); ok {
			hasStyle = true
		}
		if ok, _ := doublestar.Match("**/index.php", name); ok {
			hasIndex = true
		}
		if isRootPHP(name) {
			hasPluginPHP = true
		}
	}

	switch roots := report.Metadata.RootDirs; len(roots) {
	case 0:
		report.warnf("archive has no top-level directory")
	case 1:
		report.Metadata.RootDir = roots[0]
	default:
		report.warnf("archive has %d top-level directories: %s", len(roots), strings.Join(roots, ", "))
	}

	switch kind {
	case KindTheme:
		if !hasStyle {
			report.errorf("theme is missing style.css")
		}
		if !hasIndex {
			report.errorf("theme is missing index.php")
		}
	case KindPlugin:
		if !hasPluginPHP {
			report.errorf("plugin has no PHP file at its root")
		}
	}

	if entries > limits.MaxEntries {
		report.errorf("archive has %d entries, limit is %d", entries, limits.MaxEntries)
	}
	if report.Metadata.TotalSize > limits.MaxTotalSize {
		report.errorf("uncompressed size %s exceeds limit of %s",
			humanize.IBytes(report.Metadata.TotalSize), humanize.IBytes(limits.MaxTotalSize))
	}

	report.Valid = len(report.Errors) == 0
	return report, nil
}

// isRootPHP reports a .php file at the archive root or directly inside a
// top-level directory.
func isRootPHP(name string) bool {
	for _, pattern := range []string{"*.php", "*/*.php"} {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
