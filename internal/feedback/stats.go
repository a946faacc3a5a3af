package feedback

import "sync/atomic"

// Stats counts submission outcomes since process start. Operational counters
// only; nothing here looks at feedback content.
type Stats struct {
	accepted          atomic.Int64
	rejected          atomic.Int64
	persistenceFailed atomic.Int64
	forwarded         atomic.Int64
	forwardFailed     atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Accepted          int64 `json:"accepted"`
	Rejected          int64 `json:"rejected"`
	PersistenceFailed int64 `json:"persistence_failed"`
	Forwarded         int64 `json:"forwarded"`
	ForwardFailed     int64 `json:"forward_failed"`
}

func (s *Stats) record(r Result) {
	switch r.Outcome {
	case OutcomeAccepted:
		s.accepted.Add(1)
		if r.Forwarded {
			s.forwarded.Add(1)
		} else if r.ForwardError != "" {
			s.forwardFailed.Add(1)
		}
	case OutcomeRejectedEmpty:
		s.rejected.Add(1)
	case OutcomePersistenceFailed:
		s.persistenceFailed.Add(1)
	}
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Accepted:          s.accepted.Load(),
		Rejected:          s.rejected.Load(),
		PersistenceFailed: s.persistenceFailed.Load(),
		Forwarded:         s.forwarded.Load(),
		ForwardFailed:     s.forwardFailed.Load(),
	}
}
