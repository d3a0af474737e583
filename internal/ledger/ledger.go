// Package ledger holds the per-session inventory table: an ordered,
// coordinate-keyed list of confirmed sample descriptions.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// Ledger is an in-memory, insertion-ordered set of entries with unique
// coordinates. It is a transient working buffer owned by one session.
type Ledger struct {
	mu      sync.Mutex
	entries []domain.Entry
	now     func() time.Time
}

func New() *Ledger {
	return NewWithClock(time.Now)
}

// NewWithClock returns a ledger that stamps entries using now.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

func (l *Ledger) stamp() time.Time {
	return l.now().UTC().Truncate(time.Second)
}

// Add appends a new entry. It fails with ErrDuplicateCoordinate when the
// coordinate already exists, leaving the existing entry untouched.
func (l *Ledger) Add(coordinate, description string) (domain.Entry, error) {
	coordinate = NormalizeCoordinate(coordinate)
	if coordinate == "" {
		return domain.Entry{}, ErrInvalidCoordinate
	}
	if strings.TrimSpace(description) == "" {
		return domain.Entry{}, ErrEmptyDescription
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(coordinate) >= 0 {
		return domain.Entry{}, fmt.Errorf("add %s: %w", coordinate, ErrDuplicateCoordinate)
	}
	e := domain.Entry{Coordinate: coordinate, Description: description, Timestamp: l.stamp()}
	l.entries = append(l.entries, e)
	return e, nil
}

// Update replaces the description and timestamp of an existing entry in place.
func (l *Ledger) Update(coordinate, description string) (domain.Entry, error) {
	coordinate = NormalizeCoordinate(coordinate)
	if strings.TrimSpace(description) == "" {
		return domain.Entry{}, ErrEmptyDescription
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(coordinate)
	if i < 0 {
		return domain.Entry{}, fmt.Errorf("update %s: %w", coordinate, ErrNotFound)
	}
	l.entries[i].Description = description
	l.entries[i].Timestamp = l.stamp()
	return l.entries[i], nil
}

// RemoveLast pops the most recently appended entry. Updates do not change
// which entry is last. It reports false on an empty ledger.
func (l *Ledger) RemoveLast() (domain.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return domain.Entry{}, false
	}
	last := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return last, true
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Snapshot returns a copy of the entries, either in insertion order or sorted
// lexicographically by coordinate.
func (l *Ledger) Snapshot(sortByCoordinate bool) []domain.Entry {
	l.mu.Lock()
	out := make([]domain.Entry, len(l.entries))
	copy(out, l.entries)
	l.mu.Unlock()

	if sortByCoordinate {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Coordinate < out[j].Coordinate
		})
	}
	return out
}

func (l *Ledger) Contains(coordinate string) bool {
	_, ok := l.Get(coordinate)
	return ok
}

func (l *Ledger) Get(coordinate string) (domain.Entry, bool) {
	coordinate = NormalizeCoordinate(coordinate)

	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(coordinate); i >= 0 {
		return l.entries[i], true
	}
	return domain.Entry{}, false
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// indexOf expects a normalized coordinate; callers hold l.mu.
func (l *Ledger) indexOf(coordinate string) int {
	for i := range l.entries {
		if l.entries[i].Coordinate == coordinate {
			return i
		}
	}
	return -1
}
