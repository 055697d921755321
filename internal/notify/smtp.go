package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"medbook/internal/config"
	"medbook/internal/logging"

	"github.com/rs/zerolog"
)

// SMTPSender delivers over SMTP with STARTTLS and PLAIN auth, one attempt per message.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	timeout   time.Duration
	tlsConfig *tls.Config
	logger    zerolog.Logger
}

func NewSMTPSender(cfg config.NotificationConfig, logger *zerolog.Logger) *SMTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPSender{
		host:      cfg.SMTP.Host,
		port:      cfg.SMTP.Port,
		username:  cfg.SMTP.Username,
		password:  cfg.SMTP.Password,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		timeout:   timeout,
		tlsConfig: &tls.Config{ServerName: cfg.SMTP.Host, MinVersion: tls.VersionTLS12},
		logger:    logging.Component(logger, "notify_smtp"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) bool {
	if err := s.send(ctx, to, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", logging.MaskEmail(to)).Msg("smtp send failed")
		return false
	}
	s.logger.Info().Str("to", logging.MaskEmail(to)).Str("subject", subject).Msg("email sent via smtp")
	return true
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return errors.New("smtp server does not offer STARTTLS")
	}
	if err := c.StartTLS(s.tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if s.username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(s.fromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(rcpt.Address); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(s.buildMessage(rcpt.Address, subject, body)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}

func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	from := (&mail.Address{Name: s.fromName, Address: s.fromEmail}).String()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}
