package measure

import (
	"cell-analyzer/internal/calibrate"
	"cell-analyzer/pkg/geometry"
)

// Store is the ordered collection of measurement records for one loaded
// image. Insertion order is display order. IDs are assigned from a
// monotonically increasing counter and are never reused within the store's
// lifetime, including across delete cycles; only Restore sets them
// verbatim from a saved snapshot.
type Store struct {
	records []*Record
	nextID  int
}

// NewStore creates an empty store with the ID counter at 1.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Records returns the records in insertion order. The returned slice is
// the store's own backing; callers must not modify it.
func (s *Store) Records() []*Record {
	return s.records
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// NextID returns the ID the next created record will receive.
func (s *Store) NextID() int {
	return s.nextID
}

// Get returns the record with the given ID, or nil.
func (s *Store) Get(id int) *Record {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// TryCreateAt creates a record for the first region in detection order that
// contains the point (boundary inclusive). Returns nil when no region
// contains the point; the store is then unchanged. A point inside several
// overlapping regions binds to the first match only.
func (s *Store) TryCreateAt(pt geometry.PointInt, regions []geometry.Contour, cal calibrate.Calibration) *Record {
	for _, region := range regions {
		if !region.Contains(pt) {
			continue
		}
		rec := &Record{
			ID:      s.nextID,
			Contour: region.Clone(),
		}
		rec.recalculate(cal)
		s.records = append(s.records, rec)
		s.nextID++
		return rec
	}
	return nil
}

// Delete removes the record with the given ID. Returns false if no such
// record exists; remaining records keep their IDs and the counter is not
// decremented.
func (s *Store) Delete(id int) bool {
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// RecalculateAll rederives every record's µm fields from its stored
// contour and the given calibration, in place. IDs and contours are
// untouched. Idempotent for a fixed calibration.
func (s *Store) RecalculateAll(cal calibrate.Calibration) {
	for _, r := range s.records {
		r.recalculate(cal)
	}
}

// Restore replaces the store's contents wholesale with records and counter
// from a saved snapshot. Stored µm values are trusted as given; no
// recomputation is performed.
func (s *Store) Restore(records []*Record, nextID int) {
	s.records = make([]*Record, len(records))
	for i, r := range records {
		s.records[i] = r.Clone()
	}
	if nextID < 1 {
		nextID = 1
	}
	s.nextID = nextID
}

// Clear empties the store and resets the ID counter to 1. Used when a new
// image replaces the store's current one.
func (s *Store) Clear() {
	s.records = nil
	s.nextID = 1
}
