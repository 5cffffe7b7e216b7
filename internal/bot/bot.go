// Package bot runs the receive, dispatch, reply loop.
package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bavix/dobson/internal/chat"
	"github.com/bavix/dobson/internal/metrics"
)

const defaultPollInterval = time.Second

// Handler produces at most one reply per message.
type Handler interface {
	Handle(ctx context.Context, msg chat.Message) (string, bool)
}

// Bot owns the transport for its lifetime.
type Bot struct {
	transport    chat.Transport
	handler      Handler
	pollInterval time.Duration
}

func New(transport chat.Transport, handler Handler, pollInterval time.Duration) *Bot {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Bot{transport: transport, handler: handler, pollInterval: pollInterval}
}

// Run blocks until ctx is done. Transport errors are logged and followed by
// a reconnect; it only returns an error when Connect gives up, which
// happens for a rejected token.
func (b *Bot) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	if err := b.transport.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}

	defer func() { _ = b.transport.Close() }()

	metrics.SetReady(true)
	defer metrics.SetReady(false)

	logger.Info().Dur("poll_interval", b.pollInterval).Msg("bot started")

	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()

	for {
		msgs, err := b.transport.Receive(ctx)
		if ctx.Err() != nil {
			logger.Info().Msg("bot shutting down")

			return nil
		}

		for _, msg := range msgs {
			b.handle(ctx, msg)
		}

		if err != nil {
			logger.Error().Err(err).Msg("chat transport error, reconnecting")
			metrics.RecordReconnect()
			metrics.SetReady(false)

			if err := b.transport.Connect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			metrics.SetReady(true)
		}

		timer.Reset(b.pollInterval)

		select {
		case <-ctx.Done():
			logger.Info().Msg("bot shutting down")

			return nil
		case <-timer.C:
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg chat.Message) {
	text, ok := b.handler.Handle(ctx, msg)
	if !ok {
		return
	}

	err := b.transport.Send(ctx, msg.Channel, text)
	metrics.RecordReply(err)

	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("channel", msg.Channel).Msg("failed to send reply")
	}
}
