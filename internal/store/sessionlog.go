package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// logTimeFormat is the timestamp layout used in session log records.
const logTimeFormat = "2006-01-02 15:04:05"

// SessionLog appends one pipe-delimited record per end-of-message, plus one
// record for every session that closes without a completed message. It is
// shared by all sessions; writes are serialized behind a mutex.
type SessionLog struct {
	mu sync.Mutex
	f  *os.File
}

// OpenSessionLog opens (or creates) the append-only session log at path.
func OpenSessionLog(path string) (*SessionLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	return &SessionLog{f: f}, nil
}

// Record writes one log record. msgFile is the identifier returned by the
// Store, WriteError after a storage failure, or empty for a record emitted
// at session close with no message.
func (l *SessionLog) Record(now time.Time, env Envelope, msgFile string) error {
	fields := []string{
		now.UTC().Format(logTimeFormat),
		env.Start.UTC().Format(logTimeFormat),
		env.SessionID,
		orSentinel(env.ClientIP, NoIP),
		orSentinel(env.Helo, NoHelo),
		orSentinel(env.MailFrom, NoFrom),
		strconv.Itoa(len(env.Recipients)),
		joinRecipients(env.Recipients),
		strconv.Itoa(env.MsgCount),
		orSentinel(msgFile, NoFile),
		orSentinel(env.ListType, NotListed),
		orSentinel(env.ListName, None),
		orSentinel(env.ListValue, None),
		flag(env.EarlyTalker),
		strconv.Itoa(env.NoopCount),
		strconv.Itoa(env.VrfyCount),
		strconv.Itoa(env.ErrCount),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintln(l.f, strings.Join(fields, "|"))
	return err
}

// Close closes the underlying log file.
func (l *SessionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func joinRecipients(rcpts []string) string {
	if len(rcpts) == 0 {
		return NoRcpt
	}
	return strings.Join(rcpts, ",")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
