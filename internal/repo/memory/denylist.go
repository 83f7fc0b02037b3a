package memory

import (
	"context"
	"sync"
	"time"
)

// Denylist holds revoked token ids until they would have expired.
type Denylist struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{until: map[string]time.Time{}, now: time.Now}
}

func (d *Denylist) Revoke(_ context.Context, jti string, until time.Time) error {
	if jti == "" {
		return nil
	}
	d.mu.Lock()
	d.until[jti] = until
	d.mu.Unlock()
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.until[jti]
	if !ok {
		return false, nil
	}
	if d.now().After(exp) {
		delete(d.until, jti)
		return false, nil
	}
	return true, nil
}
