package clock

import (
	"sync"
	"time"
)

// StampLayout is the fixed-width UTC layout used for persisted timestamps.
// Lexicographic order of stamps equals chronological order only because every
// stamp has the same width and zone; listing code sorts on the raw string.
const StampLayout = "2006-01-02T15:04:05.000000Z"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Stamp formats t with StampLayout in UTC.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// MockClock returns a fixed time that tests advance explicitly.
type MockClock struct {
	mu      sync.Mutex
	NowTime time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.NowTime = m.NowTime.Add(d)
	m.mu.Unlock()
}
