package history

import (
	"sync"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// Series is a fixed-capacity, insertion-ordered buffer of data points.
// Append and eviction happen under one write lock, so readers never see
// a half-written point or a series mid-eviction. Points are deep-copied on
// the way in and on the way out; no caller holds a stored annotation.
type Series struct {
	mutex    sync.RWMutex
	data     []models.DataPoint
	head     int // index of the oldest point
	size     int
	capacity int
}

func newSeries(capacity int) *Series {
	return &Series{
		data:     make([]models.DataPoint, capacity),
		capacity: capacity,
	}
}

// push writes p at the tail, overwriting the oldest point when full.
// Caller must hold the write lock.
func (s *Series) push(p models.DataPoint) {
	if s.size > 0 {
		newest := s.data[(s.head+s.size-1)%s.capacity]
		if p.Timestamp.Before(newest.Timestamp) {
			p.Timestamp = newest.Timestamp
		}
	}

	idx := (s.head + s.size) % s.capacity
	s.data[idx] = p.Copy()
	if s.size < s.capacity {
		s.size++
	} else {
		s.head = (s.head + 1) % s.capacity
	}
}

func (s *Series) append(p models.DataPoint) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.push(p)
}

// tail copies the last n points, oldest first
func (s *Series) tail(n int) []models.DataPoint {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if n > s.size {
		n = s.size
	}
	if n <= 0 {
		return []models.DataPoint{}
	}

	out := make([]models.DataPoint, n)
	start := s.size - n
	for i := 0; i < n; i++ {
		out[i] = s.data[(s.head+start+i)%s.capacity].Copy()
	}
	return out
}

func (s *Series) latest() (models.DataPoint, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.size == 0 {
		return models.DataPoint{}, false
	}
	return s.data[(s.head+s.size-1)%s.capacity].Copy(), true
}

func (s *Series) len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.size
}
