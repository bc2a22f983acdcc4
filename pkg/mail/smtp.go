package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Security selects how the SMTP connection is protected.
type Security string

const (
	SecurityStartTLS Security = "starttls"
	SecurityTLS      Security = "tls"
	SecurityNone     Security = "none"
)

// ErrNoStartTLS is returned when STARTTLS is required but not offered.
var ErrNoStartTLS = errors.New("server does not support STARTTLS")

// Transport delivers an encoded message to its recipients.
type Transport interface {
	Deliver(ctx context.Context, from string, to []string, msg []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, from string, to []string, msg []byte) error

// Deliver calls f.
func (f TransportFunc) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	return f(ctx, from, to, msg)
}

// SMTPConfig holds the server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Security Security

	// Timeout bounds one delivery attempt (default 30s).
	Timeout time.Duration

	// TLSConfig overrides the TLS settings; ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTPTransport sends mail with net/smtp, one connection per delivery.
type SMTPTransport struct {
	cfg SMTPConfig
}

var _ Transport = (*SMTPTransport)(nil)

// NewSMTPTransport creates a transport for cfg.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Security == "" {
		cfg.Security = SecurityStartTLS
	}
	return &SMTPTransport{cfg: cfg}
}

// Addr returns host:port.
func (t *SMTPTransport) Addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.cfg.TLSConfig != nil {
		c := t.cfg.TLSConfig.Clone()
		if c.ServerName == "" {
			c.ServerName = t.cfg.Host
		}
		return c
	}
	return &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}
}

// Deliver opens a connection, authenticates when credentials are set and
// sends msg.
func (t *SMTPTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", t.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if t.cfg.Security == SecurityStartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return ErrNoStartTLS
		}
		if err := c.StartTLS(t.tlsConfig()); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if t.cfg.Username != "" && t.cfg.Password != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}

	return c.Quit()
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{}
	if t.cfg.Security == SecurityTLS {
		td := &tls.Dialer{NetDialer: d, Config: t.tlsConfig()}
		return td.DialContext(ctx, "tcp", t.Addr())
	}
	return d.DialContext(ctx, "tcp", t.Addr())
}
