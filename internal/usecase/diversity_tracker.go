package usecase

import (
	"slices"
	"sync"
)

// DefaultDiversityWindow is how many recently shown posts are remembered
const DefaultDiversityWindow = 20

// DiversityTracker is a bounded FIFO set of recently surfaced post ids.
// It can also remember recent creators; that window is disabled at size 0.
// It is safe for concurrent use.
type DiversityTracker struct {
	mu       sync.RWMutex
	ids      boundedSet
	creators boundedSet
}

// NewDiversityTracker creates a tracker holding at most capacity post ids
// and creatorCapacity creator ids.
func NewDiversityTracker(capacity, creatorCapacity int) *DiversityTracker {
	if capacity <= 0 {
		capacity = DefaultDiversityWindow
	}
	if creatorCapacity < 0 {
		creatorCapacity = 0
	}
	return &DiversityTracker{
		ids:      boundedSet{capacity: capacity},
		creators: boundedSet{capacity: creatorCapacity},
	}
}

// MarkAsShown records a surfaced post, evicting the oldest entry past capacity
func (d *DiversityTracker) MarkAsShown(postID string) {
	if postID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids.add(postID)
}

// MarkCreatorShown records the author of a surfaced post
func (d *DiversityTracker) MarkCreatorShown(authorID string) {
	if authorID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creators.add(authorID)
}

// Contains reports whether the post was recently shown
func (d *DiversityTracker) Contains(postID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ids.contains(postID)
}

// ContainsCreator reports whether a post by this author was recently shown
func (d *DiversityTracker) ContainsCreator(authorID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.creators.contains(authorID)
}

// Len returns the number of tracked post ids
func (d *DiversityTracker) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ids.order)
}

// boundedSet keeps insertion order for FIFO eviction. Not synchronized.
type boundedSet struct {
	capacity int
	order    []string
}

func (s *boundedSet) add(id string) {
	if s.capacity == 0 || slices.Contains(s.order, id) {
		return
	}
	s.order = append(s.order, id)
	if len(s.order) > s.capacity {
		s.order = slices.Delete(s.order, 0, len(s.order)-s.capacity)
	}
}

func (s *boundedSet) contains(id string) bool {
	return slices.Contains(s.order, id)
}
