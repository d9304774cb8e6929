package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// SessionMetrics tallies the outcomes of one review session.
type SessionMetrics struct {
	mu sync.Mutex

	reviewed atomic.Int64
	failed   atomic.Int64
	errors   atomic.Int64

	byKind    map[string]int64
	ratingSum int64
	durations []time.Duration
}

// NewSessionMetrics creates an empty tally.
func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{byKind: make(map[string]int64)}
}

// RecordReview records one scheduled review.
func (m *SessionMetrics) RecordReview(kind string, rating int, passed bool, duration time.Duration) {
	m.reviewed.Add(1)
	if !passed {
		m.failed.Add(1)
	}

	m.mu.Lock()
	m.byKind[kind]++
	m.ratingSum += int64(rating)
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordError records a review that could not be saved.
func (m *SessionMetrics) RecordError() {
	m.errors.Add(1)
}

// Snapshot returns a point-in-time copy of the tally.
func (m *SessionMetrics) Snapshot() *SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[string]int64, len(m.byKind))
	for k, v := range m.byKind {
		byKind[k] = v
	}

	snap := &SessionSnapshot{
		Reviewed: m.reviewed.Load(),
		Failed:   m.failed.Load(),
		Errors:   m.errors.Load(),
		ByKind:   byKind,
	}
	if snap.Reviewed > 0 {
		snap.AverageRating = float64(m.ratingSum) / float64(snap.Reviewed)
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		snap.AverageDuration = total / time.Duration(len(m.durations))
	}
	return snap
}

// SessionSnapshot represents a point-in-time copy of SessionMetrics.
type SessionSnapshot struct {
	Reviewed        int64
	Failed          int64
	Errors          int64
	ByKind          map[string]int64
	AverageRating   float64
	AverageDuration time.Duration
}
