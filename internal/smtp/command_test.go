package smtp

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCmd Command
		wantArg string
	}{
		{"empty line", "", CmdCrlf, ""},
		{"helo", "HELO client.example", CmdHelo, "client.example"},
		{"helo lowercase", "helo client.example", CmdHelo, "client.example"},
		{"helo mixed case", "HeLo client.example", CmdHelo, "client.example"},
		{"helo no arg", "HELO", CmdHelo, ""},
		{"ehlo", "EHLO client.example", CmdEhlo, "client.example"},
		{"mail from", "MAIL FROM:<a@b.example>", CmdMailFrom, "<a@b.example>"},
		{"mail from spaced", "MAIL FROM:  <a@b.example>", CmdMailFrom, "<a@b.example>"},
		{"mail from lowercase", "mail from:<a@b.example>", CmdMailFrom, "<a@b.example>"},
		{"mail without colon is unknown", "MAIL FROM <a@b.example>", CmdInvalid, ""},
		{"rcpt to", "RCPT TO:<x@local.test>", CmdRcptTo, "<x@local.test>"},
		{"rcpt to bare address", "RCPT TO:x@local.test", CmdRcptTo, "x@local.test"},
		{"data", "DATA", CmdData, ""},
		{"rset", "RSET", CmdRset, ""},
		{"quit", "QUIT", CmdQuit, ""},
		{"vrfy", "VRFY postmaster", CmdVrfy, "postmaster"},
		{"expn", "EXPN staff", CmdExpn, "staff"},
		{"help", "HELP", CmdHelp, ""},
		{"noop", "NOOP", CmdNoop, ""},
		{"noop with arg", "NOOP ignored words", CmdNoop, "ignored words"},
		{"unknown", "FOO bar", CmdInvalid, ""},
		{"prefix match with junk suffix", "DATAX", CmdData, ""},
		{"whitespace collapse", "VRFY   a \t b", CmdVrfy, "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg := Parse(tt.line)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%q) cmd = %v, want %v", tt.line, cmd, tt.wantCmd)
			}
			if arg != tt.wantArg {
				t.Errorf("Parse(%q) arg = %q, want %q", tt.line, arg, tt.wantArg)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CmdInvalid, "INVALID"},
		{CmdCrlf, "CRLF"},
		{CmdHelo, "HELO"},
		{CmdEhlo, "EHLO"},
		{CmdMailFrom, "MAIL"},
		{CmdRcptTo, "RCPT"},
		{CmdData, "DATA"},
		{CmdRset, "RSET"},
		{CmdQuit, "QUIT"},
		{CmdVrfy, "VRFY"},
		{CmdExpn, "EXPN"},
		{CmdHelp, "HELP"},
		{CmdNoop, "NOOP"},
		{Command(99), "INVALID"},
	}

	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("Command(%d).String() = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestLongestPrefixWins(t *testing.T) {
	// MAIL FROM: must not be shadowed by a shorter entry.
	cmd, arg := Parse("MAIL FROM:<a@b.example>")
	if cmd != CmdMailFrom {
		t.Fatalf("cmd = %v, want CmdMailFrom", cmd)
	}
	if arg != "<a@b.example>" {
		t.Errorf("arg = %q", arg)
	}
}
