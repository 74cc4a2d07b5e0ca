package smtp

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/robhughadams/mailrecv/internal/config"
	"github.com/robhughadams/mailrecv/internal/dnsxl"
	"github.com/robhughadams/mailrecv/internal/server"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateGreet, "GREET"},
		{StateWaitHelo, "WAIT_HELO"},
		{StateWaitMail, "WAIT_MAIL"},
		{StateWaitRcptOrData, "WAIT_RCPT_OR_DATA"},
		{StateReadBody, "READ_BODY"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// newIdleSession builds a session over a pipe without running Handle.
func newIdleSession(t *testing.T) *Session {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	cfg := config.Default()
	s := NewSession(&cfg, local, Deps{
		Counters: &server.Counters{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(s.release)
	return s
}

func TestResetMessageClearsPerMessageState(t *testing.T) {
	s := newIdleSession(t)

	s.helo = "client.example"
	s.mailFrom = "a@b.example"
	s.rcptTo = []string{"x@local.test"}
	s.msgCount = 2
	s.noopCount = 3
	s.vrfyCount = 4
	s.errCount = 5

	s.resetMessage()

	if s.mailFrom != "" {
		t.Errorf("mailFrom = %q, want empty", s.mailFrom)
	}
	if len(s.rcptTo) != 0 {
		t.Errorf("rcptTo = %v, want empty", s.rcptTo)
	}
	if s.noopCount != 0 || s.vrfyCount != 0 || s.errCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 0/0/0", s.noopCount, s.vrfyCount, s.errCount)
	}

	// Session-level state survives the per-message reset.
	if s.helo != "client.example" {
		t.Errorf("helo = %q, should survive reset", s.helo)
	}
	if s.msgCount != 2 {
		t.Errorf("msgCount = %d, should survive reset", s.msgCount)
	}
}

func TestResetMessageIdempotent(t *testing.T) {
	s := newIdleSession(t)

	s.mailFrom = "a@b.example"
	s.rcptTo = []string{"x@local.test"}
	s.errCount = 1

	s.resetMessage()
	first := s.envelope()
	s.resetMessage()
	second := s.envelope()

	if first.MailFrom != second.MailFrom ||
		len(first.Recipients) != len(second.Recipients) ||
		first.NoopCount != second.NoopCount ||
		first.VrfyCount != second.VrfyCount ||
		first.ErrCount != second.ErrCount {
		t.Error("double reset should be indistinguishable from a single reset")
	}
}

func TestEnvelopeSnapshot(t *testing.T) {
	s := newIdleSession(t)

	s.helo = "client.example"
	s.mailFrom = "a@b.example"
	s.rcptTo = []string{"x@local.test", "y@local.test"}
	s.msgCount = 1
	s.verdict = &dnsxl.Verdict{Type: "white", Name: "wl.example.net", Value: "127.0.0.10"}

	env := s.envelope()

	if env.SessionIndex != s.index || env.SessionID != s.id {
		t.Error("envelope should carry the session identity")
	}
	if env.Helo != "client.example" || env.MailFrom != "a@b.example" {
		t.Error("envelope should carry the message envelope")
	}
	if len(env.Recipients) != 2 {
		t.Errorf("Recipients = %v", env.Recipients)
	}
	if env.ListType != "white" || env.ListName != "wl.example.net" {
		t.Errorf("verdict = %s/%s", env.ListType, env.ListName)
	}

	// The snapshot must be detached from the live recipient slice.
	env.Recipients[0] = "mutated"
	if s.rcptTo[0] != "x@local.test" {
		t.Error("envelope shares the recipient slice with the session")
	}
}

func TestReleaseDecrementsOnce(t *testing.T) {
	local, remote := net.Pipe()
	defer func() {
		_ = local.Close()
		_ = remote.Close()
	}()

	cfg := config.Default()
	counters := &server.Counters{}
	s := NewSession(&cfg, local, Deps{
		Counters: counters,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if counters.Live() != 1 {
		t.Fatalf("Live() = %d after construction, want 1", counters.Live())
	}

	s.release()
	s.release()
	s.release()

	if counters.Live() != 0 {
		t.Errorf("Live() = %d after repeated release, want 0", counters.Live())
	}
	if s.state != StateClosed {
		t.Errorf("state = %v after release, want CLOSED", s.state)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		s := newIdleSession(t)
		if seen[s.ID()] {
			t.Fatalf("duplicate session id %q", s.ID())
		}
		seen[s.ID()] = true
	}
}
