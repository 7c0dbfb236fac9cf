package ingest

import (
	"sync"

	"github.com/google/uuid"
)

// IDSource issues task ids that are never reused within a process.
type IDSource struct {
	mu     sync.Mutex
	gen    func() string
	issued map[string]struct{}
}

// NewIDSource returns a source backed by gen, or random UUIDs when gen is nil.
func NewIDSource(gen func() string) *IDSource {
	if gen == nil {
		gen = uuid.NewString
	}
	return &IDSource{gen: gen, issued: make(map[string]struct{})}
}

// Next returns an id that has not been issued before and for which exists
// reports false.
func (s *IDSource) Next(exists func(string) bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id := s.gen()
		if _, seen := s.issued[id]; seen {
			continue
		}
		if exists != nil && exists(id) {
			s.issued[id] = struct{}{}
			continue
		}
		s.issued[id] = struct{}{}
		return id
	}
}
