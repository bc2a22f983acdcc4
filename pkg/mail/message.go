// Package mail delivers the HTML report over SMTP.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one HTML email.
type Message struct {
	From     string
	To       []string
	Subject  string
	HTMLBody string

	// ID becomes the local part of the Message-ID header. A random UUID is
	// used when empty.
	ID string

	// Date defaults to the time Bytes is called.
	Date time.Time
}

// Bytes encodes the message as RFC 5322 text with a quoted-printable body.
func (m Message) Bytes() ([]byte, error) {
	if m.From == "" {
		return nil, errors.New("message has no sender")
	}
	if len(m.To) == 0 {
		return nil, errors.New("message has no recipients")
	}

	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	to := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		a, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid to address %q: %w", addr, err)
		}
		to = append(to, a.String())
	}

	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", id, domainOf(from.Address)))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(m.HTMLBody)); err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	return buf.Bytes(), nil
}

// Recipients returns the bare addresses of To, for the SMTP envelope.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		if a, err := mail.ParseAddress(addr); err == nil {
			out = append(out, a.Address)
		}
	}
	return out
}

// Sender returns the bare address of From, for the SMTP envelope.
func (m Message) Sender() string {
	if a, err := mail.ParseAddress(m.From); err == nil {
		return a.Address
	}
	return m.From
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "logwarden"
}
