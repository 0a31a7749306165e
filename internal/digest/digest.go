// Package digest sends each chat a scheduled summary of its upcoming
// respawns, driven by a cron spec from the config.
package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"respawnbot/internal/notifier"
	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Spec     string
	Timezone string
	// Now overrides the clock in tests.
	Now func() time.Time
}

type Service struct {
	store store.TimerStore
	sink  notifier.Sink
	conv  timeutil.Converter
	log   logx.Logger

	parser cron.Parser

	now func() time.Time

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
}

func New(cfg Config, ts store.TimerStore, sink notifier.Sink, conv timeutil.Converter, log logx.Logger) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		now:   now,
		store: ts,
		sink:  sink,
		conv:  conv,
		log:   log,
		// SecondOptional allows both 5-field and 6-field cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		cfg:    cfg,
	}
}

// Start arms the cron entry. Safe to call with a disabled config; the
// service just stays idle until Apply enables it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartLocked(ctx)
}

// Apply re-arms the cron entry with a new config (hot reload path).
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.restartLocked(ctx)
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if s.c != nil {
		s.c.Stop()
		s.c = nil
	}
}

func (s *Service) restartLocked(ctx context.Context) error {
	s.stopLocked()
	if !s.cfg.Enabled {
		return nil
	}
	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		return fmt.Errorf("digest enabled but cron spec is empty")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("digest cron spec %q: %w", spec, err)
	}

	loc := s.conv.User()
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest timezone %q: %w", tz, err)
		}
		loc = l
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("digest armed", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) tick(ctx context.Context) {
	chats, err := s.store.ListChats(ctx)
	if err != nil {
		s.log.Error("digest: list chats failed", logx.Err(err))
		return
	}
	for _, chatID := range chats {
		timers, err := s.store.ListByChat(ctx, chatID, 0)
		if err != nil {
			s.log.Error("digest: list timers failed", logx.Int64("chat", chatID), logx.Err(err))
			continue
		}
		if len(timers) == 0 {
			continue
		}
		_ = s.sink.Send(ctx, chatID, s.render(timers))
	}
}

func (s *Service) render(timers []store.Timer) string {
	now := s.now()
	var b strings.Builder
	b.WriteString("*Upcoming respawns*\n")
	for _, t := range timers {
		fmt.Fprintf(&b, "\n%s — *%s* (%s) — `%s`",
			s.conv.ToUser(t.RespawnAt).Format("02.01 15:04"),
			t.Boss,
			timeutil.FormatRemaining(t.RespawnAt.Sub(now)),
			t.ID,
		)
	}
	return b.String()
}
