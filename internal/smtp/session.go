package smtp

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robhughadams/mailrecv/internal/config"
	"github.com/robhughadams/mailrecv/internal/dnsxl"
	"github.com/robhughadams/mailrecv/internal/logging"
	"github.com/robhughadams/mailrecv/internal/metrics"
	"github.com/robhughadams/mailrecv/internal/server"
	"github.com/robhughadams/mailrecv/internal/store"
)

// State represents the current position in the SMTP dialogue.
type State int

const (
	StateGreet State = iota // pre-banner checks
	StateWaitHelo
	StateWaitMail
	StateWaitRcptOrData
	StateReadBody
	StateClosed
)

// String returns a human-readable representation of the session state.
func (s State) String() string {
	switch s {
	case StateGreet:
		return "GREET"
	case StateWaitHelo:
		return "WAIT_HELO"
	case StateWaitMail:
		return "WAIT_MAIL"
	case StateWaitRcptOrData:
		return "WAIT_RCPT_OR_DATA"
	case StateReadBody:
		return "READ_BODY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Deps are the collaborators a session hands off to. Prober, Store, and
// SessionLog may be nil (list checks disabled, storage disabled, logging
// disabled respectively).
type Deps struct {
	Counters   *server.Counters
	Prober     dnsxl.Prober
	Store      store.Store
	SessionLog *store.SessionLog
	Collector  metrics.Collector
	Logger     *slog.Logger
}

// Session is the per-connection protocol engine. One instance per accepted
// connection; it runs on its own goroutine and performs no concurrent work
// internally.
type Session struct {
	cfg  *config.Config
	conn *server.Connection
	deps Deps

	logger *slog.Logger

	// Identity.
	index    uint64
	id       string
	start    time.Time
	clientIP string

	// Protocol state.
	state    State
	lastCmd  Command
	helo     string
	mailFrom string
	rcptTo   []string

	msgCount  int
	noopCount int
	vrfyCount int
	errCount  int

	timedOut    bool
	earlyTalker bool

	verdict *dnsxl.Verdict

	releaseOnce sync.Once
}

// NewSession wraps an accepted connection. Construction claims a session
// index and bumps the live-session gauge; the matching release happens
// exactly once when Handle returns, on every exit path.
func NewSession(cfg *config.Config, conn net.Conn, deps Deps) *Session {
	if deps.Collector == nil {
		deps.Collector = &metrics.NoopCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	c := server.NewConnection(conn, cfg.ReceiveTimeout())
	s := &Session{
		cfg:      cfg,
		conn:     c,
		deps:     deps,
		index:    deps.Counters.SessionStarted(),
		id:       uuid.NewString(),
		start:    time.Now().UTC(),
		clientIP: c.RemoteIP(),
		state:    StateGreet,
	}
	s.logger = logging.WithSession(deps.Logger, s.id, s.clientIP)
	deps.Collector.SessionOpened()

	s.logger.Debug("session accepted", slog.Uint64("index", s.index))
	return s
}

// ID returns the opaque session identifier.
func (s *Session) ID() string {
	return s.id
}

// resetMessage clears the per-message state after a terminal dot, a 422
// quota rejection, or RSET. The HELO string and the session-level message
// count survive.
func (s *Session) resetMessage() {
	s.mailFrom = ""
	s.rcptTo = nil
	s.noopCount = 0
	s.vrfyCount = 0
	s.errCount = 0
}

// envelope snapshots the session state for the store and session log.
func (s *Session) envelope() store.Envelope {
	env := store.Envelope{
		SessionIndex: s.index,
		SessionID:    s.id,
		Start:        s.start,
		ClientIP:     s.clientIP,
		Helo:         s.helo,
		MailFrom:     s.mailFrom,
		Recipients:   append([]string(nil), s.rcptTo...),
		MsgCount:     s.msgCount,
		NoopCount:    s.noopCount,
		VrfyCount:    s.vrfyCount,
		ErrCount:     s.errCount,
		EarlyTalker:  s.earlyTalker,
	}
	if s.verdict != nil {
		env.ListType = s.verdict.Type
		env.ListName = s.verdict.Name
		env.ListValue = s.verdict.Value
	}
	return env
}

// release closes the connection, writes the per-session log record when no
// message completed, and gives back the live-session slot. Idempotent.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		if s.msgCount == 0 && s.deps.SessionLog != nil {
			if err := s.deps.SessionLog.Record(time.Now(), s.envelope(), ""); err != nil {
				s.logger.Error("session log write failed", slog.String("error", err.Error()))
			}
		}

		_ = s.conn.Close()
		s.deps.Counters.SessionEnded()
		s.deps.Collector.SessionClosed()
		s.state = StateClosed

		s.logger.Info("session closed",
			slog.Uint64("index", s.index),
			slog.String("last_cmd", s.lastCmd.String()),
			slog.Int("messages", s.msgCount),
			slog.Int("errors", s.errCount),
			slog.Bool("timed_out", s.timedOut),
			slog.Bool("early_talker", s.earlyTalker))
	})
}

// Handler returns a server.SessionHandler that runs the protocol engine on
// each accepted connection.
func Handler(cfg *config.Config, deps Deps) server.SessionHandler {
	return func(ctx context.Context, conn net.Conn) {
		NewSession(cfg, conn, deps).Handle(ctx)
	}
}
