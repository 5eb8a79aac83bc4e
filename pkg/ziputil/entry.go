// Package ziputil lists, validates and safely extracts ZIP archives.
//
// Extraction enforces entry-count and size quotas, rejects entries whose
// names would escape the target directory, and streams file contents to disk
// without buffering whole files in memory.
package ziputil

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry describes a single record in an archive's central directory.
type Entry struct {
	Name             string    `json:"name"`
	CompressedSize   uint64    `json:"compressed_size"`
	UncompressedSize uint64    `json:"uncompressed_size"`
	IsDir            bool      `json:"is_dir"`
	IsSymlink        bool      `json:"is_symlink,omitempty"`
	CRC32            uint32    `json:"crc32"`
	Method           uint16    `json:"method"`
	Modified         time.Time `json:"modified"`
}

func entryOf(f *zip.File) Entry {
	mode := f.Mode()
	return Entry{
		Name:             f.Name,
		CompressedSize:   f.CompressedSize64,
		UncompressedSize: f.UncompressedSize64,
		IsDir:            mode.IsDir(),
		IsSymlink:        mode&fs.ModeSymlink != 0,
		CRC32:            f.CRC32,
		Method:           f.Method,
		Modified:         f.Modified,
	}
}

// openArchive opens path as a ZIP archive, mapping failures onto ErrArchiveOpen.
// Insecure names are tolerated here; they are rejected per entry instead.
func openArchive(path string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveOpen, path, err)
	}
	return rc, nil
}

// ListEntries returns the archive's entries in central-directory order. The
// archive is opened when iteration starts and closed when it stops, so the
// sequence can be ranged over more than once. A failure to open the archive
// is yielded once as an error matching ErrArchiveOpen.
func ListEntries(path string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		rc, err := openArchive(path)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer func() { _ = rc.Close() }()

		for _, f := range rc.File {
			if !yield(entryOf(f), nil) {
				return
			}
		}
	}
}

// Entries collects ListEntries into a slice.
func Entries(path string) ([]Entry, error) {
	var entries []Entry
	for e, err := range ListEntries(path) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
