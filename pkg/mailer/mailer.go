// Package mailer defines the outbound email contract used to deliver
// share notifications, plus shared helpers for the transport adapters.
package mailer

import (
	"context"

	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To       string
	From     string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

// Sender is implemented by transport adapters (console, SMTP, SES).
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Base provides shared logging helpers for adapters. Recipient addresses
// are masked before they reach the logs.
type Base struct {
	log logger.Logger
}

// NewBase wraps a logger, falling back to no-op when nil.
func NewBase(l logger.Logger) Base {
	if l == nil {
		l = &logger.Nop{}
	}
	return Base{log: l}
}

func (b Base) LogSuccess(name string, msg Message) {
	b.log.Info("mail delivered",
		logger.F("adapter", name),
		logger.F("to", MaskAddress(msg.To)),
		logger.F("subject", msg.Subject),
	)
}

func (b Base) LogFailure(name string, msg Message, err error) {
	b.log.Error("mail delivery failed",
		logger.F("adapter", name),
		logger.F("to", MaskAddress(msg.To)),
		logger.F("error", err),
	)
}

// Logger exposes the adapter logger for structured diagnostics.
func (b Base) Logger() logger.Logger {
	if b.log == nil {
		return &logger.Nop{}
	}
	return b.log
}
