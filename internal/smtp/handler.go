package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robhughadams/mailrecv/internal/dnsxl"
	"github.com/robhughadams/mailrecv/internal/logging"
	"github.com/robhughadams/mailrecv/internal/server"
	"github.com/robhughadams/mailrecv/internal/store"
)

// defaultTarpit is the pause after a reply while the session has no errors.
const defaultTarpit = 25 * time.Millisecond

// Handle runs the SMTP dialogue to completion: pre-banner checks, banner,
// command loop, and the body sub-loop. It returns when the client quits,
// times out, trips a limit, or the connection fails; the session releases
// its resources on every path.
func (s *Session) Handle(ctx context.Context) {
	defer s.release()

	// Admission: construction already claimed a live-session slot.
	if s.deps.Counters.Live() > int64(s.cfg.MaxSessions) {
		s.deps.Collector.MessageRejected("too_many_sessions")
		s.writeLine(replyTooManyConns)
		return
	}

	// DNS list verdict for this client. Blacklisted clients are turned away
	// up front unless we are storing mail, in which case the sink accepts
	// and records them.
	if s.deps.Prober != nil {
		s.verdict = s.deps.Prober.Probe(ctx, s.clientIP)
		if s.verdict != nil {
			s.deps.Collector.DNSListHit(s.verdict.Type, s.verdict.Name)
			s.logger.Info("dns list hit",
				slog.String("type", s.verdict.Type),
				slog.String("list", s.verdict.Name),
				slog.String("value", s.verdict.Value))
			if s.verdict.Type == dnsxl.TypeBlack && !s.cfg.StoreData {
				s.deps.Collector.MessageRejected("blacklisted")
				s.writeLine(fmt.Sprintf("442 Connection refused (%s)", s.verdict.Name))
				return
			}
		}
	}

	if d := s.cfg.BannerDelay(); d > 0 {
		time.Sleep(d)
	}
	if s.cfg.EarlyTalkers && s.conn.PendingInput() {
		s.flagEarlyTalker()
		s.writeLine(replyEarlyTalker)
		return
	}

	banner := fmt.Sprintf("220 %s MailRecv 0.1.2-b4; %s",
		s.cfg.HostName, time.Now().UTC().Format(time.RFC1123))
	if !s.reply(banner) {
		return
	}
	s.state = StateWaitHelo

	for {
		line, ok := s.readLine()
		if !ok {
			return
		}

		cmd, arg := Parse(line)
		s.lastCmd = cmd
		s.deps.Collector.CommandProcessed(cmd.String())

		if s.dispatch(ctx, cmd, arg) {
			return
		}
	}
}

// dispatch acts on one parsed command. It returns true when the session
// must end.
func (s *Session) dispatch(ctx context.Context, cmd Command, arg string) bool {
	switch cmd {
	case CmdQuit:
		s.writeLine(replyClosing)
		return true

	case CmdHelo, CmdEhlo:
		return s.handleHelo(cmd, arg)

	case CmdMailFrom:
		return s.handleMailFrom(arg)

	case CmdRcptTo:
		return s.handleRcptTo(arg)

	case CmdData:
		return s.handleData(ctx)

	case CmdRset:
		s.resetMessage()
		s.state = StateWaitHelo
		return !s.reply(replyResetState)

	case CmdNoop:
		s.noopCount++
		if s.cfg.MaxSmtpNoop > 0 && s.noopCount > s.cfg.MaxSmtpNoop {
			s.deps.Collector.MessageRejected("max_noop")
			s.writeLine(replyMaxNoop)
			return true
		}
		return !s.reply(replyNoopOK)

	case CmdVrfy, CmdExpn:
		s.vrfyCount++
		if s.cfg.MaxSmtpVrfy > 0 && s.vrfyCount > s.cfg.MaxSmtpVrfy {
			s.deps.Collector.MessageRejected("max_vrfy")
			s.writeLine(replyMaxVrfy)
			return true
		}
		return !s.reply(replyVrfy)

	case CmdHelp:
		return !s.reply(replyHelp)

	default:
		// CmdInvalid and the bare-CRLF line.
		return s.protocolError(replyUnknown)
	}
}

func (s *Session) handleHelo(cmd Command, arg string) bool {
	if s.cfg.CheckHeloFormat {
		if err := CheckHelo(arg, s.cfg.HostName, s.cfg.ListenIP); err != nil {
			s.logger.Debug("HELO rejected",
				slog.String("helo", arg),
				slog.String("error", err.Error()))
			return s.protocolError(replyBadHelo)
		}
	}

	s.helo = arg
	s.state = StateWaitMail

	if cmd == CmdEhlo {
		return !s.replyLines([]string{
			fmt.Sprintf("250-%s Hello %s [%s]", s.cfg.HostName, arg, s.clientIP),
			"250-HELP",
			"250-VRFY",
			"250-EXPN",
			"250 NOOP",
		})
	}
	return !s.reply(fmt.Sprintf("250 %s Hello %s [%s]", s.cfg.HostName, arg, s.clientIP))
}

func (s *Session) handleMailFrom(arg string) bool {
	if s.state != StateWaitMail {
		return s.protocolError(replyBadSequence)
	}
	if s.cfg.MaxMessages > 0 && s.msgCount >= s.cfg.MaxMessages {
		s.deps.Collector.MessageRejected("max_messages")
		s.writeLine(replyMaxMessages)
		return true
	}

	local, domain, err := CheckAddress(arg)
	if err != nil {
		return s.protocolError(replyBadAddress)
	}

	s.mailFrom = local + "@" + domain
	s.state = StateWaitRcptOrData
	return !s.reply(replySenderOK)
}

func (s *Session) handleRcptTo(arg string) bool {
	if s.state != StateWaitRcptOrData {
		return s.protocolError(replyBadSequence)
	}
	if s.cfg.MaxSmtpRcpt > 0 && len(s.rcptTo) >= s.cfg.MaxSmtpRcpt {
		s.deps.Collector.MessageRejected("max_rcpt")
		s.writeLine(replyMaxRcpt)
		return true
	}

	local, domain, err := CheckAddress(arg)
	if err != nil {
		return s.protocolError(replyBadAddress)
	}
	if !DomainIsLocal(domain, s.cfg.LocalDomains) {
		s.deps.Collector.MessageRejected("relay_denied")
		return s.protocolError(replyRelayDenied)
	}
	if !MailboxIsLocal(local, domain, s.cfg.LocalMailboxes) {
		s.deps.Collector.MessageRejected("unknown_mailbox")
		return s.protocolError(replyBadMailbox)
	}

	s.rcptTo = append(s.rcptTo, local+"@"+domain)
	return !s.reply(replyRecipientOK)
}

func (s *Session) handleData(ctx context.Context) bool {
	if s.state != StateWaitRcptOrData {
		return s.protocolError(replyBadSequence)
	}
	if len(s.rcptTo) == 0 {
		return s.protocolError(replyNoRecipients)
	}

	// Nolisting mode without storage: turn the sender away before the body.
	if s.cfg.DoTempFail && !s.cfg.StoreData {
		s.deps.Collector.MessageRejected("tempfail")
		s.writeLine(replyTempFail)
		return true
	}

	s.state = StateReadBody
	if !s.reply(replyStartMail) {
		return true
	}

	body, overflow, ok := s.readBody()
	if !ok {
		return true
	}

	if overflow {
		s.deps.Collector.MessageRejected("quota")
		s.resetMessage()
		s.state = StateWaitHelo
		return !s.reply(replyQuota)
	}

	s.msgCount++

	msgFile := ""
	if s.cfg.StoreData && s.deps.Store != nil {
		name, err := s.deps.Store.Save(ctx, s.envelope(), body)
		if err != nil {
			s.logger.Error("message store failed", slog.String("error", err.Error()))
			msgFile = store.WriteError
		} else {
			msgFile = name
		}
	}
	if s.deps.SessionLog != nil {
		if err := s.deps.SessionLog.Record(time.Now(), s.envelope(), msgFile); err != nil {
			s.logger.Error("session log write failed", slog.String("error", err.Error()))
		}
	}

	s.deps.Collector.MessageReceived(int64(len(body)))
	s.logger.Info("message accepted",
		slog.Int("size", len(body)),
		slog.Int("recipients", len(s.rcptTo)),
		slog.String("file", msgFile))

	// Nolisting mode with storage: keep the evidence, then tempfail anyway.
	if s.cfg.DoTempFail {
		s.deps.Collector.MessageRejected("tempfail")
		s.writeLine(replyTempFail)
		return true
	}

	s.resetMessage()
	s.state = StateWaitHelo
	return !s.reply(replyQueued)
}

// readBody accumulates body lines until the terminal dot. The returned body
// is nil when storage is disabled. overflow reports that the kept bytes
// would exceed max_data_size; the remaining lines are still read to drain
// the client but discarded. ok is false when the connection died.
func (s *Session) readBody() (body []byte, overflow, ok bool) {
	var buf bytes.Buffer
	for {
		line, lineOK := s.readLine()
		if !lineOK {
			return nil, false, false
		}

		if line == "." {
			return buf.Bytes(), overflow, true
		}
		if !s.cfg.StoreData || overflow {
			continue
		}
		if s.cfg.MaxDataSize > 0 && buf.Len()+len(line)+2 > s.cfg.MaxDataSize {
			overflow = true
			buf.Reset()
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
}

// readLine reads one line honoring the receive timeout. A timeout marks the
// session timed out, counts an error, and sends a best-effort 442.
func (s *Session) readLine() (string, bool) {
	line, err := s.conn.ReadLine()
	if err != nil {
		if server.IsTimeout(err) {
			s.timedOut = true
			s.errCount++
			s.writeLine(replyTimeout)
		}
		return "", false
	}
	s.wireLog(logging.DirRecv, line)
	return line, true
}

// protocolError counts a client error and replies with the given line, or
// closes with the ceiling reply once max_smtp_err trips. Returns true when
// the session must end.
func (s *Session) protocolError(reply string) bool {
	s.errCount++
	if s.cfg.MaxSmtpErr > 0 && s.errCount > s.cfg.MaxSmtpErr {
		s.deps.Collector.MessageRejected("max_errors")
		s.writeLine(replyMaxErrors)
		return true
	}
	return !s.reply(reply)
}

// reply writes one line, runs the post-reply early-talker probe, then
// applies the tarpit pause. Returns false when the session must end.
func (s *Session) reply(line string) bool {
	return s.replyLines([]string{line})
}

func (s *Session) replyLines(lines []string) bool {
	for _, line := range lines {
		if !s.writeLine(line) {
			return false
		}
	}
	// The probe runs before the tarpit: bytes pending now were sent before
	// the client can have read the reply.
	if s.cfg.EarlyTalkers && s.conn.PendingInput() {
		s.flagEarlyTalker()
		s.writeLine(replyEarlyTalker)
		return false
	}
	s.tarpit()
	return true
}

// writeLine sends one line. A write failure marks the connection unusable.
func (s *Session) writeLine(line string) bool {
	s.wireLog(logging.DirSend, line)
	if err := s.conn.WriteLine(line); err != nil {
		s.logger.Debug("write failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// tarpit sleeps error_delay_ms per accumulated error, or a small fixed
// pause for clean sessions.
func (s *Session) tarpit() {
	var d time.Duration
	if s.errCount > 0 {
		d = time.Duration(s.errCount) * s.cfg.ErrorDelay()
	} else {
		d = defaultTarpit
	}
	if d <= 0 {
		return
	}
	time.Sleep(d)
	s.deps.Collector.TarpitDelay(d.Seconds())
}

func (s *Session) flagEarlyTalker() {
	s.earlyTalker = true
	s.errCount++
	s.deps.Collector.EarlyTalker()
	s.logger.Info("early talker detected")
}

func (s *Session) wireLog(direction, line string) {
	if s.cfg.LogVerbose {
		logging.WireLine(s.logger, direction, line)
	}
}
