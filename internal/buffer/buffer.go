package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Buffer is an append-only durable queue of readings that could not be
// delivered. Records come back from DrainAll in the order they were appended.
//
// Draining is two-phase: DrainAll hands out the backlog but leaves it on
// disk, and Commit deletes it once the caller has delivered or re-appended
// every record. Until Commit, Exists keeps reporting the backlog and a crash
// loses nothing.
type Buffer interface {
	// Append persists one reading. It never truncates existing records.
	Append(r reading.Reading) error

	// Exists reports whether at least one record is waiting.
	Exists() (bool, error)

	// DrainAll returns every waiting record in append order. Records that
	// cannot be decoded are not returned; Commit moves them to quarantine.
	DrainAll() ([]reading.Reading, error)

	// Commit deletes the records returned by the last DrainAll. Records
	// appended since then stay. Without a pending drain it does nothing.
	Commit() error

	// Reject quarantines a reading that can never be delivered, with the
	// reason, where DrainAll does not return it.
	Reject(r reading.Reading, reason error) error

	// Health reports whether the buffer location is usable.
	Health(ctx context.Context) error

	Close() error
}

// quarantined is one entry set aside by Reject or by a drain that could not
// decode a record. Record holds the original bytes or, for a reading that
// cannot be encoded, its Go syntax.
type quarantined struct {
	RejectedAt time.Time `json:"rejected_at"`
	Reason     string    `json:"reason"`
	Record     string    `json:"record"`
}

func quarantineLine(reason, record string) []byte {
	//nolint:errcheck // strings and a time only
	line, _ := json.Marshal(quarantined{
		RejectedAt: time.Now().UTC(),
		Reason:     reason,
		Record:     record,
	})
	return append(line, '\n')
}

// describe renders r losslessly, NaN and Inf included.
func describe(r reading.Reading) string {
	return fmt.Sprintf("%#v", r)
}

// Open validates cfg.Path and returns the configured backend.
// A path that cannot serve as a buffer yields an error wrapping ErrConfiguration.
func Open(cfg config.BufferConfig, log *logging.Logger) (Buffer, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "buffer", "backend", cfg.Backend)

	switch cfg.Backend {
	case config.BufferSQLite:
		return OpenSQLite(cfg.Path, cfg.BusyTimeout, log)
	case config.BufferFile, "":
		return OpenFile(cfg.Path, log)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfiguration, cfg.Backend)
	}
}

// validatePath checks that path names a regular file (or nothing yet) in a
// directory we can create and that the process can open it for append.
// A file created only for the check is removed again.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrConfiguration)
	}

	info, err := os.Stat(path)
	existed := err == nil
	switch {
	case existed && info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrConfiguration, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating directory: %w", ErrConfiguration, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, filePermissions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if !existed {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: removing check file: %w", ErrConfiguration, err)
		}
	}
	return nil
}
