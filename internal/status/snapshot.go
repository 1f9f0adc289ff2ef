// internal/status/snapshot.go
package status

import (
	"time"

	"github.com/luma/tiller/transport"
)

// Snapshot is a point-in-time view of the running service. It contains
// no logic and no memory of the past beyond current state.
type Snapshot struct {
	Version   string
	StartedAt time.Time
	Uptime    time.Duration
	Transport transport.Counters
}

// Tracker hands out snapshots of a running service. The counter source
// is sampled at snapshot time, never cached.
type Tracker struct {
	version   string
	startedAt time.Time
	now       func() time.Time
	source    func() transport.Counters
}

func NewTracker(version string, source func() transport.Counters) *Tracker {
	return &Tracker{
		version:   version,
		startedAt: time.Now(),
		now:       time.Now,
		source:    source,
	}
}

func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		Version:   t.version,
		StartedAt: t.startedAt,
		Uptime:    t.now().Sub(t.startedAt),
	}

	if t.source != nil {
		snap.Transport = t.source()
	}

	return snap
}
