package server

import (
	"time"
)

func (s *Server) tickLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.tickPass(time.Now())
			s.mu.Unlock()
		}
	}
}

// tickPass advances every active clock; sessions that flag out terminate
// themselves and drop out of the registry. Lock held.
func (s *Server) tickPass(now time.Time) {
	for _, g := range s.games {
		g.TickClock(now)
	}
}
