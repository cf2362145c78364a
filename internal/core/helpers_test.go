package core

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"glucotrack/internal/ident"
	"glucotrack/internal/kv"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + strconv.Itoa(n)
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *testClock) {
	t.Helper()
	clock := newTestClock()
	base := []Option{WithClock(clock), WithIDGenerator(sequence("id-"))}
	svc, err := NewService(context.Background(), kv.NewMemory(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, clock
}

func at(clock *testClock, offset time.Duration) ident.Timestamp {
	return ident.TimestampOf(clock.Now().Add(offset))
}

func mustUser(t *testing.T, svc *Service, email string) User {
	t.Helper()
	user, _, err := svc.Users().Register(context.Background(), User{Email: email, Name: "Test"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func mustReading(t *testing.T, svc *Service, userID string, value float64, ts ident.Timestamp) GlucoseReading {
	t.Helper()
	r, err := svc.Readings().Record(context.Background(), GlucoseReading{UserID: userID, Value: value, Timestamp: ts})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return r
}
