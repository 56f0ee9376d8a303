package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-viz/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cleanup expires idle sessions on a cron schedule.
type Cleanup struct {
	service  SessionService
	schedule string
	ttl      time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
}

func NewCleanup(service SessionService, cfg *config.Config, logger *zap.Logger) *Cleanup {
	return &Cleanup{
		service:  service,
		schedule: cfg.SessionCleanupSchedule,
		ttl:      cfg.SessionTTL,
		logger:   logger,
	}
}

func (c *Cleanup) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler != nil {
		return nil
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(c.schedule, func() { c.Run(context.Background()) }); err != nil {
		return fmt.Errorf("invalid session cleanup schedule %q: %w", c.schedule, err)
	}
	scheduler.Start()
	c.scheduler = scheduler
	c.logger.Info("session cleanup scheduled", zap.String("schedule", c.schedule), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Cleanup) Stop() {
	c.mu.Lock()
	scheduler := c.scheduler
	c.scheduler = nil
	c.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}

// Run expires idle sessions once.
func (c *Cleanup) Run(ctx context.Context) int {
	n, err := c.service.ExpireIdle(ctx, c.ttl)
	if err != nil {
		c.logger.Error("session cleanup failed", zap.Error(err))
		return 0
	}
	return n
}
