package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"precheck/internal/logging"
	"precheck/internal/metrics"
)

// Resilient wraps a Storage with the circuit breaker and a per-call timeout.
// Every call updates the shared breaker accounting; a timed-out call counts
// as a failure. Callers observe ErrUnavailable when the circuit is open or
// the collaborator call fails.
type Resilient struct {
	inner   Storage
	breaker *Breaker
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Metrics
}

// NewResilient wraps inner with breaker-guarded, timeout-bounded calls.
// A zero timeout falls back to 30s. metrics may be nil.
func NewResilient(inner Storage, breaker *Breaker, timeout time.Duration, log logging.Logger, m *metrics.Metrics) *Resilient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Resilient{inner: inner, breaker: breaker, timeout: timeout, log: log, metrics: m}
}

// Breaker exposes the underlying breaker, mainly for health reporting.
func (r *Resilient) Breaker() *Breaker { return r.breaker }

// Put uploads a blob through the breaker.
func (r *Resilient) Put(ctx context.Context, key string, blob []byte, opt PutOptions) (ObjectInfo, error) {
	var info ObjectInfo
	err := r.call(ctx, "put", func(cctx context.Context) error {
		var err error
		info, err = r.inner.Put(cctx, key, blob, opt)
		return err
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return info, nil
}

// Get retrieves a blob through the breaker.
func (r *Resilient) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	var (
		blob []byte
		info ObjectInfo
	)
	err := r.call(ctx, "get", func(cctx context.Context) error {
		var err error
		blob, info, err = r.inner.Get(cctx, key)
		return err
	})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return blob, info, nil
}

// Delete removes a blob through the breaker.
func (r *Resilient) Delete(ctx context.Context, key string) error {
	return r.call(ctx, "delete", func(cctx context.Context) error {
		return r.inner.Delete(cctx, key)
	})
}

func (r *Resilient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if !r.breaker.Allow() {
		return fmt.Errorf("%w: circuit open, %s rejected", ErrUnavailable, op)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	before := r.breaker.State()
	start := time.Now()
	err := fn(cctx)
	r.metrics.ObserveStorageCall(op, time.Since(start).Seconds())

	if err != nil {
		// A caller-side cancellation is not the collaborator's fault and
		// must not count against the breaker.
		if errors.Is(ctx.Err(), context.Canceled) {
			r.breaker.ReleaseTrial()
			return ctx.Err()
		}
		after := r.breaker.RecordFailure()
		r.observeTransition(ctx, before, after)
		return fmt.Errorf("%w: %s failed: %v", ErrUnavailable, op, err)
	}

	after := r.breaker.RecordSuccess()
	r.observeTransition(ctx, before, after)
	return nil
}

func (r *Resilient) observeTransition(ctx context.Context, before, after BreakerState) {
	r.metrics.SetBreakerState(float64(after))
	if before == after {
		return
	}
	if after == StateOpen {
		r.log.Warn(ctx, "storage circuit opened", "from", before.String())
		return
	}
	r.log.Info(ctx, "storage circuit state changed", "from", before.String(), "to", after.String())
}
