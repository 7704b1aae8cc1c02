package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// IndexWarmer periodically reloads the cached test-number and skill indexes
// so dropdown reads rarely reach the backend.
type IndexWarmer struct {
	service   *Service
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	shutdownC chan struct{}
}

func NewIndexWarmer(service *Service, interval time.Duration, logger zerolog.Logger) *IndexWarmer {
	if interval <= 0 {
		interval = 4 * time.Minute
	}
	return &IndexWarmer{
		service:   service,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
		shutdownC: make(chan struct{}),
	}
}

// Run warms once immediately and then on every tick until Stop is called.
func (w *IndexWarmer) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.warm()
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("index warmer stopping")
			return
		case <-ticker.C:
			w.warm()
		}
	}
}

func (w *IndexWarmer) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.service.RefreshIndexes(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("index warm failed")
		return
	}
	w.logger.Debug().Dur("took", time.Since(start)).Msg("indexes warmed")
}

func (w *IndexWarmer) Stop() {
	close(w.shutdownC)
}
