package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSessionLogRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l, err := OpenSessionLog(path)
	if err != nil {
		t.Fatalf("OpenSessionLog() error = %v", err)
	}
	defer func() { _ = l.Close() }()

	now := time.Date(2026, 8, 2, 11, 0, 0, 0, time.UTC)
	env := testEnvelope()

	if err := l.Record(now, env, "123-abc.msg"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimRight(string(data), "\n")
	fields := strings.Split(line, "|")

	if len(fields) != 17 {
		t.Fatalf("record has %d fields, want 17: %q", len(fields), line)
	}

	want := []string{
		"2026-08-02 11:00:00",            // now
		"2026-08-02 10:30:00",            // session start
		env.SessionID,                    // session id
		"198.51.100.9",                   // client ip
		"client.example",                 // helo
		"a@b.example",                    // mail from
		"2",                              // rcpt count
		"x@local.test,y@local.test",      // rcpt list
		"1",                              // msg count
		"123-abc.msg",                    // msg file
		"black",                          // list type
		"bl.example.net",                 // list name
		"127.0.0.2",                      // list value
		"0",                              // early talker
		"2",                              // noop count
		"0",                              // vrfy count
		"3",                              // err count
	}
	for i, w := range want {
		if fields[i] != w {
			t.Errorf("field %d = %q, want %q", i, fields[i], w)
		}
	}
}

func TestSessionLogSentinels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l, err := OpenSessionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()

	env := Envelope{
		SessionID: "empty-session",
		Start:     time.Now(),
	}
	if err := l.Record(time.Now(), env, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fields := strings.Split(strings.TrimRight(string(data), "\n"), "|")
	if len(fields) != 17 {
		t.Fatalf("record has %d fields, want 17", len(fields))
	}

	checks := map[int]string{
		3:  NoIP,
		4:  NoHelo,
		5:  NoFrom,
		6:  "0",
		7:  NoRcpt,
		9:  NoFile,
		10: NotListed,
		11: None,
		12: None,
	}
	for i, want := range checks {
		if fields[i] != want {
			t.Errorf("field %d = %q, want %q", i, fields[i], want)
		}
	}
}

func TestSessionLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")

	l, err := OpenSessionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	env := testEnvelope()
	_ = l.Record(time.Now(), env, "one.msg")
	_ = l.Close()

	// Reopening must append, not truncate.
	l, err = OpenSessionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Record(time.Now(), env, "two.msg")
	_ = l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d records, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "one.msg") || !strings.Contains(lines[1], "two.msg") {
		t.Error("records out of order or missing")
	}
}

func TestSessionLogWriteErrorMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l, err := OpenSessionLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()

	if err := l.Record(time.Now(), testEnvelope(), WriteError); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "|"+WriteError+"|") {
		t.Errorf("record should carry the %s marker: %s", WriteError, data)
	}
}
