package reaper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/pkg/config"
	"turfbook/pkg/model"

	"github.com/google/uuid"
)

const LeaseName = "hold-reaper"

// Expirer releases one batch of expired holds and reports how many it freed.
type Expirer interface {
	ExpireHolds(ctx context.Context) (int, error)
}

type Leaser interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (*model.Lease, error)
	Release(ctx context.Context, name, holder string) error
}

// Reaper sweeps expired holds on an interval. Replicas compete for a shared
// lease and only the holder sweeps.
type Reaper struct {
	expirer Expirer
	leases  Leaser
	cfg     *config.Config
	holder  string
}

func New(expirer Expirer, leases Leaser, cfg *config.Config) *Reaper {
	return &Reaper{
		expirer: expirer,
		leases:  leases,
		cfg:     cfg,
		holder:  holderID(),
	}
}

// Run sweeps once immediately and then every ReaperInterval until ctx is
// cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.cfg.Log.Info("Hold reaper started",
		"holder", r.holder,
		"interval", r.cfg.ReaperInterval.String(),
		"batch_size", r.cfg.ReaperBatchSize,
	)

	ticker := time.NewTicker(r.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.cfg.Log.Error("Hold reaper sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.release()
			r.cfg.Log.Info("Hold reaper stopped", "holder", r.holder)
			return
		case <-ticker.C:
		}
	}
}

// Sweep drains expired holds while this process holds the lease. It returns
// zero without error when another replica owns the lease.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	if _, err := r.leases.Acquire(ctx, LeaseName, r.holder, r.cfg.ReaperLeaseTTL); err != nil {
		if errors.Is(err, bookingserrors.ErrLeaseHeld) {
			r.cfg.Log.Debug("Hold reaper lease held elsewhere", "holder", r.holder)
			return 0, nil
		}
		return 0, fmt.Errorf("acquire reaper lease: %w", err)
	}

	total := 0
	for ctx.Err() == nil {
		released, err := r.expirer.ExpireHolds(ctx)
		total += released
		if err != nil {
			return total, err
		}
		if released < r.cfg.ReaperBatchSize {
			break
		}
	}
	return total, nil
}

func (r *Reaper) release() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()
	if err := r.leases.Release(ctx, LeaseName, r.holder); err != nil {
		r.cfg.Log.Warn("Failed to release reaper lease", "holder", r.holder, "error", err)
	}
}

func holderID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}
