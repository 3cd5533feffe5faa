package buffer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// drainSuffix names the file a drain works from. It is deleted only by
// Commit; one that survives a crash is read again by the next drain, ahead
// of newer records.
const drainSuffix = ".drain"

// rejectedSuffix names the quarantine file, one JSON object per line.
const rejectedSuffix = ".rejected"

// maxRecordSize bounds one JSON line.
const maxRecordSize = 64 * 1024

// FileBuffer stores one versioned JSON record per line in a plain file.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type FileBuffer struct {
	path   string
	log    *logging.Logger
	mu     sync.Mutex
	closed bool

	// draining is set by DrainAll and cleared by Commit.
	draining bool
	// undecodable holds quarantine lines for the records the last drain skipped.
	undecodable [][]byte
}

// OpenFile validates path and returns a FileBuffer. Records already in the
// file from an earlier run are kept.
func OpenFile(path string, log *logging.Logger) (*FileBuffer, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &FileBuffer{path: path, log: log}, nil
}

// Path returns the buffer file location.
func (b *FileBuffer) Path() string {
	return b.path
}

// Append writes r as one line and syncs the file.
func (b *FileBuffer) Append(r reading.Reading) error {
	line, err := reading.EncodeRecord(r)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	return appendLines(b.path, line)
}

// Exists reports whether the buffer or a leftover drain file holds data.
func (b *FileBuffer) Exists() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrClosed
	}

	for _, p := range []string{b.drainPath(), b.path} {
		nonEmpty, err := hasData(p)
		if err != nil {
			return false, err
		}
		if nonEmpty {
			return true, nil
		}
	}
	return false, nil
}

// DrainAll moves the buffer aside and reads every record in order. The
// moved file stays on disk until Commit. Appends made while a drain is
// pending land in a fresh buffer file.
//
// A drain file left by an earlier, uncommitted drain is kept and the current
// buffer is appended to it, so older records stay in front. Records may be
// delivered twice after a crash, never lost.
func (b *FileBuffer) DrainAll() ([]reading.Reading, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	drainPath := b.drainPath()

	if err := b.moveAside(drainPath); err != nil {
		return nil, err
	}

	records, undecodable, err := b.readRecords(drainPath)
	if err != nil {
		return nil, err
	}
	b.draining = true
	b.undecodable = undecodable
	return records, nil
}

// Commit quarantines the records the last drain could not decode and then
// deletes the drain file.
func (b *FileBuffer) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if !b.draining {
		return nil
	}

	if len(b.undecodable) > 0 {
		if err := appendLines(b.rejectedPath(), b.undecodable...); err != nil {
			return err
		}
		b.log.Warn("quarantined unreadable buffered records",
			"count", len(b.undecodable), "file", b.rejectedPath())
	}
	if err := removeIfExists(b.drainPath()); err != nil {
		return err
	}
	b.draining = false
	b.undecodable = nil
	return nil
}

// Reject appends r to the quarantine file.
func (b *FileBuffer) Reject(r reading.Reading, reason error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	return appendLines(b.rejectedPath(), quarantineLine(reason.Error(), describe(r)))
}

// Health checks that the buffer directory is still there.
func (b *FileBuffer) Health(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	dir := filepath.Dir(b.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrIO, dir)
	}
	return nil
}

// RejectedPath returns the quarantine file location.
func (b *FileBuffer) RejectedPath() string {
	return b.rejectedPath()
}

func (b *FileBuffer) drainPath() string    { return b.path + drainSuffix }
func (b *FileBuffer) rejectedPath() string { return b.path + rejectedSuffix }

// moveAside transfers the buffer contents to drainPath.
func (b *FileBuffer) moveAside(drainPath string) error {
	leftover, err := hasData(drainPath)
	if err != nil {
		return err
	}
	if !leftover {
		if err := os.Rename(b.path, drainPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: moving %s aside: %w", ErrIO, b.path, err)
		}
		return nil
	}

	src, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: opening %s: %w", ErrIO, b.path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(drainPath, os.O_RDWR|os.O_APPEND, filePermissions)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrIO, drainPath, err)
	}
	if err := terminateLastLine(dst); err != nil {
		dst.Close() //nolint:errcheck // repair error takes precedence
		return fmt.Errorf("%w: %s: %w", ErrIO, drainPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck // copy error takes precedence
		return fmt.Errorf("%w: appending to %s: %w", ErrIO, drainPath, err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("%w: syncing %s: %w", ErrIO, drainPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, drainPath, err)
	}
	return removeIfExists(b.path)
}

// Close marks the buffer closed. The file itself is left in place.
func (b *FileBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// readRecords decodes every line of path. Lines that fail to decode, such
// as a write torn by a crash or a record from a newer build, are returned
// as quarantine lines instead.
func (b *FileBuffer) readRecords(path string) ([]reading.Reading, [][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: opening %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	var (
		out         []reading.Reading
		undecodable [][]byte
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxRecordSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		r, err := reading.DecodeRecord(line)
		if err != nil {
			b.log.Warn("setting aside unreadable buffered record", "file", path, "line", lineNo, "error", err)
			undecodable = append(undecodable, quarantineLine(err.Error(), string(line)))
			continue
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	return out, undecodable, nil
}

// appendLines appends complete lines to path and syncs it.
func appendLines(path string, lines ...[]byte) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, filePermissions)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrIO, path, err)
	}
	if err := terminateLastLine(f); err != nil {
		f.Close() //nolint:errcheck // repair error takes precedence
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	for _, line := range lines {
		if _, err := f.Write(line); err != nil {
			f.Close() //nolint:errcheck // write error takes precedence
			return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("%w: syncing %s: %w", ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, path, err)
	}
	return nil
}

func hasData(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return info.Size() > 0, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %w", ErrIO, path, err)
	}
	return nil
}

// terminateLastLine appends a newline when the file ends in a partial line,
// so a write torn by a crash cannot swallow the next record.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}
