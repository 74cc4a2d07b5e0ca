package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileStore writes one text file per accepted message: a block of header
// lines describing the session, a blank line, then the raw body exactly as
// received.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed and returns a store
// writing into it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the envelope header block and body to a uniquely named file
// and returns the file name as the message identifier.
func (s *FileStore) Save(_ context.Context, env Envelope, body []byte) (string, error) {
	name := fmt.Sprintf("%d-%s.msg", time.Now().UTC().UnixNano(), uuid.NewString())

	var buf bytes.Buffer
	writeHeader(&buf, env)
	buf.WriteString("\r\n")
	buf.Write(body)

	if err := os.WriteFile(filepath.Join(s.dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing message file: %w", err)
	}
	return name, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func writeHeader(buf *bytes.Buffer, env Envelope) {
	put := func(name, value string) {
		buf.WriteString("X-MailRecv-")
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	put("Session-Index", fmt.Sprintf("%d", env.SessionIndex))
	put("Session-ID", env.SessionID)
	put("Session-Start", env.Start.UTC().Format(time.RFC3339))
	put("Client-IP", orSentinel(env.ClientIP, NoIP))
	if env.ListType == "" {
		put("DNS-List", NotListed)
	} else {
		put("DNS-List", env.ListType+"/"+env.ListName+"/"+env.ListValue)
	}
	put("HELO", orSentinel(env.Helo, NoHelo))
	put("Mail-From", orSentinel(env.MailFrom, NoFrom))
	if len(env.Recipients) == 0 {
		put("Rcpt-To", NoRcpt)
	} else {
		for _, rcpt := range env.Recipients {
			put("Rcpt-To", rcpt)
		}
	}
	put("Counters", fmt.Sprintf("messages=%d noop=%d vrfy=%d errors=%d",
		env.MsgCount, env.NoopCount, env.VrfyCount, env.ErrCount))
}

func orSentinel(value, sentinel string) string {
	if value == "" {
		return sentinel
	}
	return value
}
