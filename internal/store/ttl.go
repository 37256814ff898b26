package store

import (
	"context"
	"log/slog"
	"time"
)

const ttlSweepInterval = 5 * time.Minute

// StartTTLWorker runs a background goroutine that periodically removes
// sessions with no activity inside the TTL window.
func StartTTLWorker(ctx context.Context, s SessionStore, ttl time.Duration) {
	ticker := time.NewTicker(ttlSweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session TTL worker started", "interval", ttlSweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if removed := s.ExpireBefore(time.Now().Add(-ttl)); removed > 0 {
					slog.Info("Session TTL worker removed expired sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("Session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
