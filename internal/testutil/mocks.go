package testutil

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockExtractor is a testify mock of scrape.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) HiddenInput(page []byte, name string) (string, error) {
	args := m.Called(page, name)
	return args.String(0), args.Error(1)
}

func (m *MockExtractor) GlobalJSON(page []byte, name string) (json.RawMessage, error) {
	args := m.Called(page, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
