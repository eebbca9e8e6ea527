package revocation

import (
	"context"
	"time"

	"github.com/Skotchmaster/iam/internal/logging"
)

// Sweeper periodically purges expired revocation markers.
type Sweeper struct {
	Registry *Registry
	Interval time.Duration
	Now      func() time.Time
}

// Run blocks until ctx is done. A non-positive Interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	l := logging.FromContext(ctx).With("svc", "revocation.sweeper")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Registry.PurgeExpired(ctx, now())
			if err != nil {
				l.Error("purge_failed", "err", err)
				continue
			}
			if n > 0 {
				l.Info("purged_revoked_tokens", "count", n)
			}
		}
	}
}
