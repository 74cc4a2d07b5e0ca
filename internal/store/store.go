// Package store persists accepted messages and the session log.
//
// Sessions never choose file names or paths. They hand an Envelope and the
// raw body bytes to a Store and record the returned opaque identifier in
// the session log.
package store

import (
	"context"
	"time"
)

// Sentinel tokens written for missing fields in persisted artifacts.
const (
	NoHelo    = "-no-helo-"
	NoFrom    = "-no-from-"
	NoRcpt    = "-no-rcpt-"
	NoFile    = "-no-file-"
	NotListed = "-not-listed-"
	None      = "-none-"
	NoIP      = "0.0.0.0"

	// WriteError marks a storage failure in the session log; the client
	// already received its 250 and is never told.
	WriteError = "write_error"
)

// Envelope is the session-state snapshot handed off at end of message (and
// at session close for the per-session log record).
type Envelope struct {
	SessionIndex uint64
	SessionID    string
	Start        time.Time
	ClientIP     string

	// DNSxL verdict, empty strings when the address was on no list.
	ListType  string
	ListName  string
	ListValue string

	Helo       string
	MailFrom   string
	Recipients []string

	MsgCount    int
	NoopCount   int
	VrfyCount   int
	ErrCount    int
	EarlyTalker bool
}

// Store persists one message and returns an opaque identifier for the
// session log.
type Store interface {
	Save(ctx context.Context, env Envelope, body []byte) (string, error)
}
