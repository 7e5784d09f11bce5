package catalog

import (
	"errors"
	"sort"
	"sync/atomic"

	"github.com/csousa/bookdata-api/models"
)

// ErrNotFound is returned by Get when no record carries the given id.
var ErrNotFound = errors.New("catalog: book not found")

// Snapshot is an immutable point-in-time view of the catalog. IDs form
// the dense range [0, Len) matching construction order.
type Snapshot struct {
	books []models.Book
}

func newSnapshot(books []models.Book) *Snapshot {
	return &Snapshot{books: books}
}

// Empty returns a snapshot with zero records, the valid state a process
// starts in when no source file exists yet.
func Empty() *Snapshot {
	return &Snapshot{}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.books)
}

// Books returns a copy of the records in snapshot order. Callers may
// mutate the returned slice freely.
func (s *Snapshot) Books() []models.Book {
	out := make([]models.Book, len(s.books))
	copy(out, s.books)
	return out
}

// Store holds the current snapshot. Reads take no locks: the snapshot is
// immutable and Replace swaps the pointer atomically, so an in-flight
// read sees either the old or the new snapshot in full.
type Store struct {
	snap atomic.Pointer[Snapshot]
}

// NewStore wraps an initial snapshot. A nil snapshot is treated as empty.
func NewStore(snap *Snapshot) *Store {
	st := &Store{}
	st.Replace(snap)
	return st
}

// Replace installs a new snapshot. This is the only mutation point.
func (st *Store) Replace(snap *Snapshot) {
	if snap == nil {
		snap = Empty()
	}
	st.snap.Store(snap)
}

// Snapshot returns the current snapshot.
func (st *Store) Snapshot() *Snapshot {
	return st.snap.Load()
}

// Len returns the record count of the current snapshot.
func (st *Store) Len() int {
	return st.Snapshot().Len()
}

// Get returns the record with the given id, or ErrNotFound for any id
// outside [0, Len), negative ids included.
func (st *Store) Get(id int) (models.Book, error) {
	books := st.Snapshot().books
	if id < 0 || id >= len(books) {
		return models.Book{}, ErrNotFound
	}
	return books[id], nil
}

// List returns a copy of all records in snapshot order.
func (st *Store) List() []models.Book {
	return st.Snapshot().Books()
}

// Categories returns the distinct category values present, sorted
// lexicographically ascending.
func (st *Store) Categories() []string {
	books := st.Snapshot().books
	seen := make(map[string]struct{})
	var out []string
	for _, b := range books {
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out
}
