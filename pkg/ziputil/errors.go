package ziputil

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrArchiveOpen means the path is not a readable ZIP archive.
	ErrArchiveOpen = errors.New("cannot open archive")
	// ErrPathTraversal means an entry would resolve outside the target directory.
	ErrPathTraversal = errors.New("path traversal rejected")
	// ErrInvalidName means an entry name is absolute, too long or malformed.
	ErrInvalidName = errors.New("invalid entry name")
	// ErrQuotaExceeded means the archive exceeds an extraction quota. The whole
	// extraction is aborted.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// QuotaKind names the quota that was exceeded.
type QuotaKind string

const (
	QuotaEntries QuotaKind = "entries"
	QuotaTotal   QuotaKind = "total_size"
)

// QuotaError reports an aborted extraction.
type QuotaError struct {
	Kind  QuotaKind
	Limit uint64
	Entry string
}

func (e *QuotaError) Error() string {
	switch e.Kind {
	case QuotaEntries:
		return fmt.Sprintf("%s: archive has more than %d entries", ErrQuotaExceeded, e.Limit)
	default:
		return fmt.Sprintf("%s: extracting %q exceeds total size limit of %s", ErrQuotaExceeded, e.Entry, humanize.IBytes(e.Limit))
	}
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
