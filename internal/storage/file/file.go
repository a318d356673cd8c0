// Package file provides a storage that keeps the executed migration log in a
// YAML file.
package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLogFile is returned when the log file cannot be decoded.
var ErrInvalidLogFile = errors.New("an error has occurred when reading the migrations log file")

// Entry is one executed migration as written to the file.
type Entry struct {
	Name       string    `yaml:"name"`
	ExecutedAt time.Time `yaml:"executed_at"`
}

type document struct {
	Executed []Entry `yaml:"executed"`
}

// Storage persists the executed log to a single YAML file. Every operation
// reads the file afresh, so changes made by other processes between calls are
// picked up, but concurrent writers are not guarded against.
type Storage struct {
	fs      vfs.FileSystem
	path    string
	timeNow func() time.Time
	mu      sync.Mutex
}

// New returns a storage writing to path on fs. The file and its directory are
// created on the first write.
func New(fs vfs.FileSystem, path string, timeNow func() time.Time) *Storage {
	if timeNow == nil {
		timeNow = func() time.Time { return time.Now().UTC() }
	}
	return &Storage{fs: fs, path: path, timeNow: timeNow}
}

func (s *Storage) LogMigration(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Executed = append(doc.Executed, Entry{Name: name, ExecutedAt: s.timeNow()})
	return s.save(doc)
}

// UnlogMigration removes the last entry for name.
func (s *Storage) UnlogMigration(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := len(doc.Executed) - 1; i >= 0; i-- {
		if doc.Executed[i].Name == name {
			doc.Executed = slices.Delete(doc.Executed, i, i+1)
			return s.save(doc)
		}
	}
	return fmt.Errorf("migration %s is not in the executed log", name)
}

func (s *Storage) Executed(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(doc.Executed))
	for i, e := range doc.Executed {
		names[i] = e.Name
	}
	return names, nil
}

// Entries returns the raw log entries with their timestamps.
func (s *Storage) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Executed, nil
}

func (s *Storage) load() (*document, error) {
	data, err := vfs.ReadFile(s.fs, s.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return nil, fmt.Errorf("failed reading migrations log file: %w", err)
	}

	doc := &document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLogFile, err)
	}
	return doc, nil
}

func (s *Storage) save(doc *document) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed creating migrations log directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed encoding migrations log: %w", err)
	}

	if err := vfs.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed writing migrations log file: %w", err)
	}
	return nil
}
