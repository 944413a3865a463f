package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

// Options configures a Store.
type Options struct {
	// Locker serializes Save and Delete per identity (default: a KeyedMutex).
	Locker Locker

	// Logger for structured logging (default: slog.Default()).
	Logger *slog.Logger

	// NewIdentity generates identities for new documents (default: NewIdentity).
	NewIdentity func(Kind) string
}

// Store keeps generated documents in a single directory.
type Store struct {
	dir         string
	locker      Locker
	logger      *slog.Logger
	newIdentity func(Kind) string
}

// New creates the storage directory if needed and returns a Store over it.
func New(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: empty directory")
	}
	if err := os.MkdirAll(dir, defaults.DirMode); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}

	s := &Store{
		dir:         dir,
		locker:      opts.Locker,
		logger:      opts.Logger,
		newIdentity: opts.NewIdentity,
	}
	if s.locker == nil {
		s.locker = NewKeyedMutex()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newIdentity == nil {
		s.newIdentity = NewIdentity
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id)
}

// Save stores data and returns its identity. With a non-empty existing
// identity the document is replaced in place and existing is returned;
// otherwise a new identity of kind is generated.
func (s *Store) Save(ctx context.Context, data []byte, kind Kind, existing string) (string, error) {
	id := existing
	if id == "" {
		id = s.newIdentity(kind)
	}
	fail := func(err error) (string, error) {
		return "", &reporterr.FileStoreError{Op: "save", Identity: id, Cause: err}
	}

	if err := ValidateIdentity(id); err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		return fail(errors.New("empty document"))
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := s.writeAtomic(s.path(id), data); err != nil {
		return fail(err)
	}

	s.logger.Debug("document saved",
		slog.String("filename", id),
		slog.Int("bytes", len(data)),
		slog.Bool("replaced", existing != ""))
	return id, nil
}

// writeAtomic writes data to a hidden temporary file next to target,
// fsyncs it and renames it over target.
func (s *Store) writeAtomic(target string, data []byte) (err error) {
	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp) // Clean up orphaned temp file
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp, defaults.FileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	syncDir(s.dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Delete removes the document. It reports whether the document existed;
// deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	fail := func(err error) (bool, error) {
		return false, &reporterr.FileStoreError{Op: "delete", Identity: id, Cause: err}
	}
	if err := ValidateIdentity(id); err != nil {
		return fail(err)
	}

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	err = os.Remove(s.path(id))
	switch {
	case err == nil:
		s.logger.Debug("document deleted", slog.String("filename", id))
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return fail(err)
	}
}

// File is an open stored document.
type File struct {
	io.ReadSeekCloser
	Name    string
	Size    int64
	ModTime time.Time
}

// Open returns a read handle on the document. A missing document yields a
// *reporterr.FileStoreError wrapping fs.ErrNotExist.
func (s *Store) Open(id string) (*File, error) {
	fail := func(err error) (*File, error) {
		return nil, &reporterr.FileStoreError{Op: "open", Identity: id, Cause: err}
	}
	if err := ValidateIdentity(id); err != nil {
		return fail(err)
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		return fail(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fail(err)
	}
	return &File{ReadSeekCloser: f, Name: id, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Exists reports whether a document is stored under id.
func (s *Store) Exists(id string) (bool, error) {
	if err := ValidateIdentity(id); err != nil {
		return false, &reporterr.FileStoreError{Op: "stat", Identity: id, Cause: err}
	}
	_, err := os.Stat(s.path(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &reporterr.FileStoreError{Op: "stat", Identity: id, Cause: err}
	}
}
