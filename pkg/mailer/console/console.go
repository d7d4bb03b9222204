// Package console provides a mailer adapter that logs messages instead
// of delivering them, used for local development and tests.
package console

import (
	"context"

	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/mailer"
)

// Adapter writes outbound mail to the configured logger.
type Adapter struct {
	name string
	base mailer.Base
}

type Option func(*Adapter)

// WithName overrides the adapter name (defaults to "console").
func WithName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.name = name
		}
	}
}

// New constructs a console adapter.
func New(l logger.Logger, opts ...Option) *Adapter {
	adapter := &Adapter{
		name: "console",
		base: mailer.NewBase(l),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

func (a *Adapter) Name() string { return a.name }

// Send logs the message instead of delivering it.
func (a *Adapter) Send(ctx context.Context, msg mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.base.Logger().Info("console delivery",
		logger.F("to", mailer.MaskAddress(msg.To)),
		logger.F("subject", msg.Subject),
		logger.F("text", msg.TextBody),
		logger.F("html_bytes", len(msg.HTMLBody)),
	)
	a.base.LogSuccess(a.name, msg)
	return nil
}
