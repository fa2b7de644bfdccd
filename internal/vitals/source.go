// Package vitals abstracts the host environment's push-based performance
// observation substrate. Each category maps to one subscription; a substrate
// that lacks a category reports ErrUnsupported for that subscription only.
package vitals

import (
	"errors"
	"sync"
)

// Category identifies one class of push-based timing notifications.
type Category string

const (
	CategoryPaint       Category = "paint"
	CategoryLCP         Category = "largest-contentful-paint"
	CategoryFirstInput  Category = "first-input"
	CategoryLayoutShift Category = "layout-shift"
)

// Entry names within the paint category.
const EntryFirstContentfulPaint = "first-contentful-paint"

// Snapshot keys for the aggregated web-vitals view.
const (
	VitalFCP = "fcp"
	VitalLCP = "lcp"
	VitalFID = "fid"
	VitalCLS = "cls"
)

// ErrUnsupported is returned by Subscribe when the substrate cannot observe
// the requested category. Partial capability is expected; callers skip the
// category and continue.
var ErrUnsupported = errors.New("vitals: entry category not supported")

// Entry is one observation delivered by the substrate.
type Entry struct {
	Category        Category
	Name            string
	StartTime       float64 // ms since origin
	ProcessingStart float64 // ms, first-input only
	Value           float64 // layout-shift score
	HadRecentInput  bool    // layout-shift only
}

// CancelFunc tears down one subscription.
type CancelFunc func()

// Source delivers push-based timing entries. Handlers may be invoked from
// the source's own goroutines, interleaved with ordinary call activity.
type Source interface {
	Subscribe(category Category, handler func(Entry)) (CancelFunc, error)
}

// UnsupportedSource is a Source with no capabilities at all, for headless
// environments where no observation substrate exists.
type UnsupportedSource struct{}

func (UnsupportedSource) Subscribe(Category, func(Entry)) (CancelFunc, error) {
	return nil, ErrUnsupported
}

// ManualSource is a Source whose entries are pushed by the caller. Used by
// the session simulator and by tests.
type ManualSource struct {
	mu          sync.Mutex
	nextID      int
	handlers    map[Category]map[int]func(Entry)
	unsupported map[Category]bool
}

func NewManualSource() *ManualSource {
	return &ManualSource{
		handlers:    make(map[Category]map[int]func(Entry)),
		unsupported: make(map[Category]bool),
	}
}

// SetUnsupported makes future Subscribe calls for category fail with
// ErrUnsupported.
func (s *ManualSource) SetUnsupported(category Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsupported[category] = true
}

func (s *ManualSource) Subscribe(category Category, handler func(Entry)) (CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsupported[category] {
		return nil, ErrUnsupported
	}

	if s.handlers[category] == nil {
		s.handlers[category] = make(map[int]func(Entry))
	}
	id := s.nextID
	s.nextID++
	s.handlers[category][id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[category], id)
	}, nil
}

// Emit delivers an entry to every handler subscribed to its category.
func (s *ManualSource) Emit(entry Entry) {
	s.mu.Lock()
	handlers := make([]func(Entry), 0, len(s.handlers[entry.Category]))
	for _, h := range s.handlers[entry.Category] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(entry)
	}
}

// SubscriberCount reports how many handlers are registered for a category.
func (s *ManualSource) SubscriberCount(category Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers[category])
}
