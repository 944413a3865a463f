// Package recordstore keeps Report and Engagement records in a JSON file.
//
// It stands in for the services that own those records in a larger
// deployment: the gateway reads reports and engagements through it and
// persists generated filenames back. Records are held in memory behind a
// RWMutex, every mutation rewrites the file atomically and callers always
// receive deep copies.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/jsonutil"
	"github.com/reportforge/reportforge/pkg/report"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("recordstore: not found")

// Bundle is the on-disk layout and the import format of the render command.
type Bundle struct {
	Reports     []*report.Report     `json:"reports"`
	Engagements []*report.Engagement `json:"engagements"`
}

// Store is a file-backed record store. A Store with an empty path keeps
// records in memory only.
type Store struct {
	mu          sync.RWMutex
	path        string
	reports     map[string]*report.Report
	engagements map[string]*report.Engagement
}

// NewMemory creates a Store that never touches disk.
func NewMemory() *Store {
	return &Store{
		reports:     make(map[string]*report.Report),
		engagements: make(map[string]*report.Engagement),
	}
}

// Open loads the store at path, creating its directory if needed.
// A missing file yields an empty store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), defaults.DirMode); err != nil {
		return nil, fmt.Errorf("recordstore: %w", err)
	}
	s := NewMemory()
	s.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("recordstore: read %s: %w", path, err)
	}

	b, err := DecodeBundle(data)
	if err != nil {
		return nil, fmt.Errorf("recordstore: %s: %w", path, err)
	}
	s.load(b)
	return s, nil
}

// DecodeBundle parses a JSON bundle.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := jsonutil.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// LoadBundle reads and parses a JSON bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeBundle(data)
}

func (s *Store) load(b *Bundle) {
	for _, r := range b.Reports {
		if r != nil && r.ID != "" {
			s.reports[r.ID] = r.Clone()
		}
	}
	for _, e := range b.Engagements {
		if e != nil && e.ID != "" {
			s.engagements[e.ID] = e.Clone()
		}
	}
}

// Import adds or replaces every record in b and persists the result.
func (s *Store) Import(b *Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(b)
	return s.save()
}

// save persists the store using an atomic write. Callers hold s.mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	b := Bundle{
		Reports:     make([]*report.Report, 0, len(s.reports)),
		Engagements: make([]*report.Engagement, 0, len(s.engagements)),
	}
	for _, id := range sortedKeys(s.reports) {
		b.Reports = append(b.Reports, s.reports[id])
	}
	for _, id := range sortedKeys(s.engagements) {
		b.Engagements = append(b.Engagements, s.engagements[id])
	}

	data, err := jsonutil.MarshalIndent(b, "  ")
	if err != nil {
		return fmt.Errorf("recordstore: encode: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, defaults.FileMode); err != nil {
		return fmt.Errorf("recordstore: write: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up orphaned temp file
		return fmt.Errorf("recordstore: rename: %w", err)
	}
	return nil
}

// GetReport returns a copy of the report.
func (s *Store) GetReport(_ context.Context, id string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

// ReportIDs lists every report ID in ascending order.
func (s *Store) ReportIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.reports)
}

// PutReport stores a copy of r.
func (s *Store) PutReport(_ context.Context, r *report.Report) error {
	if r == nil || r.ID == "" {
		return errors.New("recordstore: report id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[r.ID] = r.Clone()
	return s.save()
}

// UpdateReport applies fn to the stored report and persists the result.
// The update is discarded if fn returns an error.
func (s *Store) UpdateReport(_ context.Context, id string, fn func(*report.Report) error) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", id, ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id

	s.reports[id] = next
	if err := s.save(); err != nil {
		s.reports[id] = cur
		return nil, err
	}
	return next.Clone(), nil
}

// DeleteReport removes the report.
func (s *Store) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[id]
	if !ok {
		return fmt.Errorf("report %q: %w", id, ErrNotFound)
	}
	delete(s.reports, id)
	if err := s.save(); err != nil {
		s.reports[id] = cur
		return err
	}
	return nil
}

// GetEngagement returns a copy of the engagement.
func (s *Store) GetEngagement(_ context.Context, id string) (*report.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.engagements[id]
	if !ok {
		return nil, fmt.Errorf("engagement %q: %w", id, ErrNotFound)
	}
	return e.Clone(), nil
}

// PutEngagement stores a copy of e.
func (s *Store) PutEngagement(_ context.Context, e *report.Engagement) error {
	if e == nil || e.ID == "" {
		return errors.New("recordstore: engagement id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engagements[e.ID] = e.Clone()
	return s.save()
}

// Stats summarizes the store contents.
type Stats struct {
	Reports     int `json:"reports"`
	Engagements int `json:"engagements"`
	Generated   int `json:"generated"`
}

// Stats counts records and persisted generated files.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Reports: len(s.reports), Engagements: len(s.engagements)}
	for _, r := range s.reports {
		st.Generated += len(r.GeneratedFiles())
	}
	return st
}
