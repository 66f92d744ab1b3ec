package server

import (
	"context"
	"time"
)

// StartMaintenance runs the periodic jobs: ledger purge, expired-session
// sweep, and rate-limiter pruning. One pass runs immediately, then one per
// interval until ctx is done. The deletes are timestamp-scoped, so running
// next to live login traffic is safe.
func (s *Server) StartMaintenance(ctx context.Context, interval time.Duration) {
	go func() {
		s.runMaintenance(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runMaintenance(ctx)
			}
		}
	}()
}

func (s *Server) runMaintenance(ctx context.Context) {
	s.logger.Debug().Msg("maintenance pass")
	s.auth.RunMaintenance(ctx)
	s.limiter.prune(time.Hour)
}
