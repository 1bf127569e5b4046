package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/pkg/config"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
)

type mockExpirer struct {
	mu      sync.Mutex
	batches []int
	err     error
	calls   int
}

func (m *mockExpirer) ExpireHolds(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if len(m.batches) == 0 {
		return 0, nil
	}
	n := m.batches[0]
	m.batches = m.batches[1:]
	return n, nil
}

func (m *mockExpirer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memoryLeaser grants a lease to one holder at a time.
type memoryLeaser struct {
	mu       sync.Mutex
	holder   string
	err      error
	released bool
}

func (l *memoryLeaser) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (*model.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.holder != "" && l.holder != holder {
		return nil, bookingserrors.ErrLeaseHeld
	}
	l.holder = holder
	return &model.Lease{ID: name, Holder: holder, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (l *memoryLeaser) Release(ctx context.Context, name, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == holder {
		l.holder = ""
		l.released = true
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log:             logger.Discard(),
		ReaperInterval:  10 * time.Millisecond,
		ReaperBatchSize: 2,
		ReaperLeaseTTL:  time.Minute,
		WriteTimeout:    time.Second,
	}
}

func TestSweep_DrainsFullBatches(t *testing.T) {
	expirer := &mockExpirer{batches: []int{2, 2, 1}}
	r := New(expirer, &memoryLeaser{}, testConfig())

	released, err := r.Sweep(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 5 {
		t.Errorf("expected 5 released, got %d", released)
	}
	if expirer.callCount() != 3 {
		t.Errorf("expected 3 batches, got %d", expirer.callCount())
	}
}

func TestSweep_SkipsWhenLeaseHeldElsewhere(t *testing.T) {
	leases := &memoryLeaser{holder: "other-replica"}
	expirer := &mockExpirer{batches: []int{1}}
	r := New(expirer, leases, testConfig())

	released, err := r.Sweep(context.Background())

	if err != nil || released != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", released, err)
	}
	if expirer.callCount() != 0 {
		t.Error("expirer must not run without the lease")
	}
}

func TestSweep_OnlyOneReplicaSweeps(t *testing.T) {
	leases := &memoryLeaser{}
	first := &mockExpirer{batches: []int{1}}
	second := &mockExpirer{batches: []int{1}}
	cfg := testConfig()

	if _, err := New(first, leases, cfg).Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if _, err := New(second, leases, cfg).Sweep(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	if first.callCount() != 1 || second.callCount() != 0 {
		t.Errorf("expected only the lease holder to sweep, got %d and %d", first.callCount(), second.callCount())
	}
}

func TestSweep_Errors(t *testing.T) {
	leaseErr := errors.New("mongo down")
	r := New(&mockExpirer{}, &memoryLeaser{err: leaseErr}, testConfig())
	if _, err := r.Sweep(context.Background()); !errors.Is(err, leaseErr) {
		t.Errorf("expected lease error, got %v", err)
	}

	expireErr := errors.New("cursor killed")
	r = New(&mockExpirer{err: expireErr}, &memoryLeaser{}, testConfig())
	if _, err := r.Sweep(context.Background()); !errors.Is(err, expireErr) {
		t.Errorf("expected expire error, got %v", err)
	}
}

func TestRun_StopsAndReleasesLease(t *testing.T) {
	leases := &memoryLeaser{}
	expirer := &mockExpirer{}
	r := New(expirer, leases, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for expirer.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
	if expirer.callCount() < 2 {
		t.Errorf("expected repeated sweeps, got %d", expirer.callCount())
	}
	leases.mu.Lock()
	defer leases.mu.Unlock()
	if !leases.released {
		t.Error("lease was not released on shutdown")
	}
}
