// Package smtp delivers share notification emails over SMTP with
// optional TLS/STARTTLS. HTML bodies always carry a text alternative.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"

	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/mailer"
)

// Config captures connection/auth options for SMTP.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	UseTLS        bool
	UseStartTLS   bool
	SkipTLSVerify bool
	Timeout       time.Duration
	AuthDisabled  bool
	Headers       map[string]string
}

// Adapter sends mail through an SMTP server.
type Adapter struct {
	name string
	base mailer.Base
	cfg  Config
}

type Option func(*Adapter)

// WithConfig sets the adapter configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithHostPort sets host and port.
func WithHostPort(host string, port int) Option {
	return func(a *Adapter) {
		if host != "" {
			a.cfg.Host = host
		}
		if port > 0 {
			a.cfg.Port = port
		}
	}
}

// WithCredentials configures username/password auth.
func WithCredentials(username, password string) Option {
	return func(a *Adapter) {
		a.cfg.Username = username
		a.cfg.Password = password
	}
}

// WithFrom sets the default From address.
func WithFrom(from string) Option {
	return func(a *Adapter) {
		if from != "" {
			a.cfg.From = from
		}
	}
}

func New(l logger.Logger, opts ...Option) *Adapter {
	adapter := &Adapter{
		name: "smtp",
		base: mailer.NewBase(l),
		cfg: Config{
			Port:        587,
			UseStartTLS: true,
			Timeout:     10 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	// Options may replace the whole config; re-apply defaults here so
	// Send never has to touch shared state.
	if adapter.cfg.Port <= 0 {
		adapter.cfg.Port = 587
	}
	if adapter.cfg.Timeout <= 0 {
		adapter.cfg.Timeout = 10 * time.Second
	}
	return adapter
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Send(ctx context.Context, msg mailer.Message) error {
	if strings.TrimSpace(a.cfg.Host) == "" {
		return fmt.Errorf("smtp: host is required")
	}
	from := msg.From
	if strings.TrimSpace(from) == "" {
		from = a.cfg.From
	}
	if from == "" {
		return fmt.Errorf("smtp: from address is required")
	}
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}
	toAddr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("smtp: invalid to address: %w", err)
	}

	body, headers := buildMessage(fromAddr.String(), toAddr.String(), msg, a.cfg.Headers)

	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	dialer := &net.Dialer{Timeout: a.cfg.Timeout}
	tlsCfg := &tls.Config{
		ServerName:         a.cfg.Host,
		InsecureSkipVerify: a.cfg.SkipTLSVerify,
	}

	client, conn, err := a.newClient(ctx, dialer, addr, tlsCfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Quit()
		_ = conn.Close()
	}()

	if a.cfg.UseStartTLS && !a.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp: starttls failed: %w", err)
			}
		}
	}

	if !a.cfg.AuthDisabled && a.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth failed: %w", err)
		}
	}

	if err := client.Mail(fromAddr.Address); err != nil {
		return fmt.Errorf("smtp: mail from failed: %w", err)
	}
	if err := client.Rcpt(toAddr.Address); err != nil {
		return fmt.Errorf("smtp: rcpt to failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: open data: %w", err)
	}
	if _, err := w.Write([]byte(headers + "\r\n\r\n" + body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close data: %w", err)
	}

	a.base.LogSuccess(a.name, msg)
	return nil
}

func (a *Adapter) newClient(ctx context.Context, dialer *net.Dialer, addr string, tlsCfg *tls.Config) (*gosmtp.Client, net.Conn, error) {
	if a.cfg.UseTLS {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("smtp: tls dial failed: %w", err)
		}
		client, err := gosmtp.NewClient(conn, a.cfg.Host)
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("smtp: new client failed: %w", err)
		}
		return client, conn, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial failed: %w", err)
	}
	client, err := gosmtp.NewClient(conn, a.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client failed: %w", err)
	}
	return client, conn, nil
}

// buildMessage assembles the wire payload. HTML messages go out as
// multipart/alternative with a derived text part.
func buildMessage(from, to string, msg mailer.Message, cfgHeaders map[string]string) (body string, headerBlock string) {
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      msg.Subject,
		"MIME-Version": "1.0",
	}
	for k, v := range cfgHeaders {
		headers[k] = v
	}
	for k, v := range msg.Headers {
		if v == "" {
			continue
		}
		headers[k] = v
	}

	textBody := msg.TextBody
	if msg.HTMLBody != "" && strings.TrimSpace(textBody) == "" {
		textBody = htmlToText(msg.HTMLBody)
	}

	if msg.HTMLBody != "" {
		boundary := fmt.Sprintf("alt-%d", time.Now().UnixNano())
		headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

		var sb strings.Builder
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(textBody + "\r\n")
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.HTMLBody + "\r\n")
		sb.WriteString("--" + boundary + "--")
		return sb.String(), formatHeaders(headers)
	}

	headers["Content-Type"] = "text/plain; charset=UTF-8"
	return textBody, formatHeaders(headers)
}

func formatHeaders(headers map[string]string) string {
	var lines []string
	for k, v := range headers {
		lines = append(lines, fmt.Sprintf("%s: %s", k, v))
	}
	return strings.Join(lines, "\r\n")
}

func htmlToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return html
	}
	return text
}
