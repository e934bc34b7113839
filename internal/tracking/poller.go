package tracking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the admin board refresh period.
const DefaultPollInterval = 5 * time.Second

// Poller runs a refresh immediately and then on a fixed interval until its
// context ends. Refresh errors are logged, never fatal; stale discards are
// silent.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	log      *zap.Logger
}

func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{interval: interval, refresh: refresh, log: log}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	err := p.refresh(ctx)
	switch {
	case err == nil, errors.Is(err, ErrStale):
	case ctx.Err() != nil:
	default:
		p.log.Warn("poll refresh failed", zap.Error(err))
	}
}
