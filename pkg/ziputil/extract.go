package ziputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/colonyops/wpforge/pkg/ziputil")

// Extractor unpacks archives under a fixed set of default quotas. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	limits Limits
	log    zerolog.Logger
}

// NewExtractor returns an Extractor. Zero fields in limits fall back to
// DefaultLimits.
func NewExtractor(limits Limits, logger zerolog.Logger) *Extractor {
	return &Extractor{
		limits: limits.orDefaults(DefaultLimits()),
		log:    logger,
	}
}

// Limits returns the extractor's default quotas.
func (x *Extractor) Limits() Limits {
	return x.limits
}

// Extract unpacks archivePath into targetDir.
//
// Per-entry problems (unsafe names, oversized entries, filtered or existing
// files) skip the entry and extraction continues. Entry-count and aggregate
// size violations abort with a *QuotaError. On abort the partial Result is
// returned with the error and files already written stay on disk unless
// opts.Staged is set.
func (x *Extractor) Extract(ctx context.Context, archivePath, targetDir string, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, fmt.Errorf("invalid extract options: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%w: %s is not a regular file", ErrArchiveOpen, archivePath)
	}

	target, err := filepath.Abs(targetDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve target %s: %w", targetDir, err)
	}

	ctx, span := tracer.Start(ctx, "ziputil.extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("archive", archivePath),
		attribute.String("target", target),
		attribute.Bool("staged", opts.Staged),
	)

	start := time.Now()
	var res Result
	if opts.Staged {
		res, err = x.extractStaged(ctx, archivePath, target, opts)
	} else {
		res, err = x.extractDirect(ctx, archivePath, target, opts)
	}

	span.SetAttributes(
		attribute.Int("files", res.FilesExtracted),
		attribute.Int("skipped", res.Skipped),
		attribute.Int64("bytes", res.TotalBytes),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		x.log.Error().Err(err).
			Str("archive", archivePath).
			Int("files", res.FilesExtracted).
			Str("written", humanize.IBytes(uint64(res.TotalBytes))).
			Msg("extraction aborted")
		return res, err
	}

	x.log.Info().
		Str("archive", archivePath).
		Str("target", target).
		Int("files", res.FilesExtracted).
		Int("skipped", res.Skipped).
		Str("written", humanize.IBytes(uint64(res.TotalBytes))).
		Dur("duration", time.Since(start)).
		Msg("extraction complete")
	return res, nil
}

func (x *Extractor) extractDirect(ctx context.Context, archivePath, target string, opts Options) (Result, error) {
	if err := ensureDir(target, opts.CreateDirectories); err != nil {
		return Result{}, err
	}
	return x.extractInto(ctx, archivePath, target, opts)
}

// extractStaged unpacks into a hidden sibling of target and renames it into
// place once every entry has been processed.
func (x *Extractor) extractStaged(ctx context.Context, archivePath, target string, opts Options) (Result, error) {
	empty, err := isEmptyOrMissing(target)
	if err != nil {
		return Result{}, err
	}
	if !empty {
		return Result{}, fmt.Errorf("staged extraction requires an empty target: %s", target)
	}

	parent := filepath.Dir(target)
	if err := ensureDir(parent, opts.CreateDirectories); err != nil {
		return Result{}, err
	}

	stage, err := os.MkdirTemp(parent, "."+filepath.Base(target)+"-staging-")
	if err != nil {
		return Result{}, fmt.Errorf("create staging directory: %w", err)
	}

	res, err := x.extractInto(ctx, archivePath, stage, opts)
	if err != nil {
		if rmErr := os.RemoveAll(stage); rmErr != nil {
			x.log.Warn().Err(rmErr).Str("dir", stage).Msg("failed to remove staging directory")
		}
		// nothing was published
		return Result{Skipped: res.Skipped}, err
	}

	// os.Rename cannot replace a directory, even an empty one.
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = os.RemoveAll(stage)
		return Result{}, fmt.Errorf("replace target %s: %w", target, err)
	}
	if err := os.Rename(stage, target); err != nil {
		_ = os.RemoveAll(stage)
		return Result{}, fmt.Errorf("publish %s: %w", target, err)
	}

	stageRoot, _ := filepath.EvalSymlinks(stage)
	for i, f := range res.Files {
		rel, err := filepath.Rel(stageRoot, f.Path)
		if err != nil {
			rel, _ = filepath.Rel(stage, f.Path)
		}
		res.Files[i].Path = filepath.Join(target, rel)
	}
	return res, nil
}

func (x *Extractor) extractInto(ctx context.Context, archivePath, target string, opts Options) (Result, error) {
	limits := opts.Limits.orDefaults(x.limits)

	// Containment is checked against the fully resolved target so a
	// symlinked target directory does not make every entry look escaped.
	root, err := filepath.EvalSymlinks(target)
	if err != nil {
		return Result{}, fmt.Errorf("resolve target %s: %w", target, err)
	}

	rc, err := openArchive(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rc.Close() }()

	var (
		res     Result
		written uint64
		total   = len(rc.File)
	)

	skip := func(name, reason string, err error) {
		res.Skipped++
		ev := x.log.Warn().Str("entry", name).Str("reason", reason)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("skipping archive entry")
	}

	for i, f := range rc.File {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		processed := i + 1
		entry := entryOf(f)

		if err := checkName(f.Name); err != nil {
			skip(f.Name, "unsafe name", err)
			continue
		}

		if processed > limits.MaxEntries {
			return res, &QuotaError{Kind: QuotaEntries, Limit: uint64(limits.MaxEntries), Entry: f.Name}
		}

		if f.UncompressedSize64 > limits.MaxFileSize {
			skip(f.Name, "exceeds per-file size limit of "+humanize.IBytes(limits.MaxFileSize), nil)
			continue
		}

		if written+f.UncompressedSize64 > limits.MaxTotalSize {
			return res, &QuotaError{Kind: QuotaTotal, Limit: limits.MaxTotalSize, Entry: f.Name}
		}

		if opts.Filter != nil && !opts.Filter(entry) {
			res.Skipped++
			x.log.Debug().Str("entry", f.Name).Msg("entry rejected by filter")
			continue
		}

		dest, ok := destination(root, f.Name)
		if !ok {
			skip(f.Name, "resolves outside target", ErrPathTraversal)
			continue
		}
		if entry.IsSymlink {
			skip(f.Name, "symbolic link", nil)
			continue
		}

		if entry.IsDir || isDirName(f.Name) {
			if !opts.CreateDirectories {
				continue
			}
			if err := mkdirWithin(root, dest, true); err != nil {
				if reason, ok := skipReason(err); ok {
					skip(f.Name, reason, err)
					continue
				}
				return res, err
			}
			continue
		}

		if err := mkdirWithin(root, filepath.Dir(dest), opts.CreateDirectories); err != nil {
			if reason, ok := skipReason(err); ok {
				skip(f.Name, reason, err)
				continue
			}
			return res, err
		}

		if existing, err := os.Lstat(dest); err == nil {
			if !opts.Overwrite {
				skip(f.Name, "destination exists", nil)
				continue
			}
			if existing.IsDir() {
				skip(f.Name, "destination is a directory", nil)
				continue
			}
			// Remove rather than truncate so a planted symlink is never followed.
			if err := os.Remove(dest); err != nil {
				return res, fmt.Errorf("replace %s: %w", dest, err)
			}
		}

		n, err := writeEntry(f, dest, limits.MaxTotalSize-written)
		if err != nil {
			var qe *QuotaError
			if errors.As(err, &qe) {
				qe.Entry = f.Name
				qe.Limit = limits.MaxTotalSize
			}
			return res, err
		}

		written += uint64(n)
		res.FilesExtracted++
		res.TotalBytes += n
		res.Files = append(res.Files, ExtractedFile{Entry: f.Name, Path: dest, Bytes: n})

		if opts.Progress != nil {
			opts.Progress(Progress{
				Entry:            f.Name,
				FilesExtracted:   res.FilesExtracted,
				BytesWritten:     res.TotalBytes,
				EntriesProcessed: processed,
				TotalEntries:     total,
			})
		}
	}

	return res, nil
}

// writeEntry streams f to a new file at dest, refusing to write more than
// budget bytes. The partial file is removed on failure.
func writeEntry(f *zip.File, dest string, budget uint64) (n int64, err error) {
	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode(f))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	limit := int64(budget)
	if budget > uint64(1<<62) {
		limit = 1 << 62
	}

	n, err = io.Copy(out, io.LimitReader(src, limit+1))
	if err != nil {
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	if n > limit {
		return n, &QuotaError{Kind: QuotaTotal, Limit: budget}
	}
	return n, nil
}

// destination joins name onto root and reports whether the result stays
// inside root.
func destination(root, name string) (string, bool) {
	clean := strings.ReplaceAll(name, `\`, "/")
	dest := filepath.Join(root, filepath.FromSlash(clean))
	return dest, within(root, dest)
}

var (
	errMissingParent = errors.New("parent directory does not exist")
	errNotDirectory  = errors.New("path component is not a directory")
)

// mkdirWithin makes sure dir exists below root, creating missing components
// one at a time when create is set. Existing components are checked with
// Lstat, so a symlink anywhere between root and dir is refused before
// anything is created through it.
func mkdirWithin(root, dir string, create bool) error {
	if !within(root, dir) {
		return fmt.Errorf("%w: %s", ErrPathTraversal, dir)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPathTraversal, err)
	}
	if rel == "." {
		return nil
	}

	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)

		info, err := os.Lstat(cur)
		switch {
		case err == nil && info.Mode()&fs.ModeSymlink != 0:
			return fmt.Errorf("%w: %s is a symbolic link", ErrPathTraversal, cur)
		case err == nil && !info.IsDir():
			return fmt.Errorf("%w: %s", errNotDirectory, cur)
		case err == nil:
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("stat %s: %w", cur, err)
		case !create:
			return fmt.Errorf("%w: %s", errMissingParent, cur)
		}

		if err := os.Mkdir(cur, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", cur, err)
		}
	}
	return nil
}

// skipReason maps the per-entry failures of mkdirWithin to a skip reason.
// Other errors abort the extraction.
func skipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrPathTraversal):
		return "parent resolves outside target", true
	case errors.Is(err, errMissingParent):
		return "parent directory does not exist", true
	case errors.Is(err, errNotDirectory):
		return "parent is not a directory", true
	}
	return "", false
}

func fileMode(f *zip.File) fs.FileMode {
	perm := f.Mode().Perm() & 0o755
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

func ensureDir(dir string, create bool) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("target %s is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat target %s: %w", dir, err)
	case !create:
		return fmt.Errorf("target %s does not exist", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create target %s: %w", dir, err)
	}
	return nil
}

func isEmptyOrMissing(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("read target %s: %w", dir, err)
	}
	return len(entries) == 0, nil
}
