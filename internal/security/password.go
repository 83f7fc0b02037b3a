package security

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher runs bcrypt on a bounded set of goroutines so a burst of signups
// cannot occupy every CPU the request handlers need.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

func (h *Hasher) Cost() int { return h.cost }

func (h *Hasher) Hash(ctx context.Context, pw string) (string, error) {
	return h.run(ctx, func() (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
		return string(b), err
	})
}

// Verify fails closed: an empty or malformed hash, or a cancelled context,
// reports false.
func (h *Hasher) Verify(ctx context.Context, pw, hash string) bool {
	if hash == "" {
		return false
	}
	_, err := h.run(ctx, func() (string, error) {
		return "", bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	})
	return err == nil
}

type hashResult struct {
	out string
	err error
}

func (h *Hasher) run(ctx context.Context, fn func() (string, error)) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	done := make(chan hashResult, 1)
	go func() {
		defer h.sem.Release(1)
		out, err := fn()
		done <- hashResult{out: out, err: err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
