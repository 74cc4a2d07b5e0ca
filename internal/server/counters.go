package server

import "sync/atomic"

// Counters holds the two process-wide session counters: the live-session
// gauge and the monotonic session index. A single Counters value is shared
// by every session; all access is atomic.
type Counters struct {
	live  atomic.Int64
	index atomic.Uint64
}

// SessionStarted registers a new session and returns its index. Indexes are
// strictly increasing across the process lifetime, starting at 1.
func (c *Counters) SessionStarted() uint64 {
	c.live.Add(1)
	return c.index.Add(1)
}

// SessionEnded releases one live-session slot. Callers must invoke it
// exactly once per started session.
func (c *Counters) SessionEnded() {
	c.live.Add(-1)
}

// Live returns the current number of live sessions.
func (c *Counters) Live() int64 {
	return c.live.Load()
}

// Index returns the most recently assigned session index.
func (c *Counters) Index() uint64 {
	return c.index.Load()
}
