package ziputil

import (
	"errors"
	"fmt"
)

// Default quotas.
const (
	DefaultMaxEntries   = 1000
	DefaultMaxFileSize  = 100 << 20
	DefaultMaxTotalSize = 500 << 20
)

// Limits are the hard ceilings enforced during extraction. Zero fields fall
// back to the package defaults.
type Limits struct {
	MaxEntries   int
	MaxFileSize  uint64
	MaxTotalSize uint64
}

// DefaultLimits returns the built-in quotas.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries:   DefaultMaxEntries,
		MaxFileSize:  DefaultMaxFileSize,
		MaxTotalSize: DefaultMaxTotalSize,
	}
}

func (l Limits) orDefaults(d Limits) Limits {
	if l.MaxEntries == 0 {
		l.MaxEntries = d.MaxEntries
	}
	if l.MaxFileSize == 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.MaxTotalSize == 0 {
		l.MaxTotalSize = d.MaxTotalSize
	}
	return l
}

// Progress is passed to Options.Progress after each file is written.
type Progress struct {
	Entry            string `json:"entry"`
	FilesExtracted   int    `json:"files_extracted"`
	BytesWritten     int64  `json:"bytes_written"`
	EntriesProcessed int    `json:"entries_processed"`
	TotalEntries     int    `json:"total_entries"`
}

// Options configures a single extraction.
type Options struct {
	// Overwrite replaces files that already exist at the destination.
	Overwrite bool
	// CreateDirectories creates directory entries and missing parent
	// directories. When false, entries whose parent does not exist are skipped.
	CreateDirectories bool
	// Filter, when set, is consulted for every entry that passed the safety
	// gates; returning false skips the entry.
	Filter func(Entry) bool
	// Progress, when set, is called synchronously after each file is written.
	// It is never called after Extract returns.
	Progress func(Progress)
	// Limits overrides the extractor's quotas for this call.
	Limits Limits
	// Staged extracts into a temporary sibling of the target directory and
	// renames it into place only when every entry succeeded. The target must
	// be empty or not exist.
	Staged bool
}

// DefaultOptions returns options that create directories and never
// overwrite existing files.
func DefaultOptions() Options {
	return Options{CreateDirectories: true}
}

func (o Options) validate() error {
	var errs []error
	if o.Limits.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("max entries must not be negative, got %d", o.Limits.MaxEntries))
	}
	if o.Staged && o.Overwrite {
		errs = append(errs, errors.New("staged extraction cannot be combined with overwrite"))
	}
	return errors.Join(errs...)
}

// ExtractedFile records one file written by Extract.
type ExtractedFile struct {
	Entry string `json:"entry"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Result summarizes an extraction. Skipped entries are counted but never
// listed.
type Result struct {
	FilesExtracted int             `json:"files_extracted"`
	TotalBytes     int64           `json:"total_bytes"`
	Files          []ExtractedFile `json:"files"`
	Skipped        int             `json:"skipped"`
}
