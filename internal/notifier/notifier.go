// Package notifier delivers outbound messages through the chat adapter
// behind a token-bucket limiter (Telegram flood control).
package notifier

import (
	"context"

	"golang.org/x/time/rate"

	"respawnbot/internal/transport"
	"respawnbot/pkg/logx"
)

// Sink accepts outbound text for a chat. Failures are logged by the
// caller and never retried.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Config struct {
	RatePerSec int
	Burst      int
}

// Service is the adapter-backed Sink.
type Service struct {
	adapter transport.Adapter
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RatePerSec
	}
	return &Service{
		adapter: adapter,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

func (s *Service) Send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	err := s.adapter.SendText(ctx, chatID, text, &transport.SendOptions{
		ParseMode:      "Markdown",
		DisablePreview: true,
	})
	if err != nil {
		s.log.Error("send failed", logx.Int64("chat", chatID), logx.Err(err))
	}
	return err
}
