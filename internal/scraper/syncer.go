package scraper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/market"
	"github.com/nepfolio/nepfolio/internal/models"
	"github.com/nepfolio/nepfolio/internal/quote"
)

// QuotePublisher mirrors committed market updates to an external feed.
type QuotePublisher interface {
	PublishQuotes(ctx context.Context, quotes []models.Quote) error
}

// Syncer runs the scrape-normalize-merge cycle. One Syncer instance runs one
// cycle at a time; Run never overlaps invocations.
type Syncer struct {
	source    Source
	engine    *market.Engine
	publisher QuotePublisher // optional
	logger    *logrus.Logger
}

// NewSyncer wires a sync pipeline. publisher may be nil.
func NewSyncer(source Source, engine *market.Engine, publisher QuotePublisher, logger *logrus.Logger) *Syncer {
	return &Syncer{source: source, engine: engine, publisher: publisher, logger: logger}
}

// SyncOnce runs a single cycle. A fetch or parse failure abandons the cycle
// wholesale: zero writes, error returned, previous table authoritative.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	rows, err := s.source.Fetch(ctx)
	if err != nil {
		return err
	}

	batch := quote.NormalizeBatch(rows)
	n, err := s.engine.Merge(ctx, batch)
	if err != nil {
		return err
	}
	s.logger.WithField("symbols", n).Info("Market sync complete")

	if s.publisher != nil && len(batch) > 0 {
		if err := s.publisher.PublishQuotes(ctx, batch); err != nil {
			s.logger.WithError(err).Warn("Quote feed publish failed")
		}
	}
	return nil
}

// Run syncs immediately, then on every tick while inWindow reports the
// market open. Upstream failures are logged and retried on the next tick.
// Blocks until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration, inWindow func(time.Time) bool) {
	s.logger.WithField("interval", interval).Info("Starting market sync loop")
	if err := s.SyncOnce(ctx); err != nil {
		s.logger.WithError(err).Error("Initial market sync failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping market sync loop")
			return
		case now := <-ticker.C:
			if inWindow != nil && !inWindow(now) {
				continue
			}
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.WithError(err).Error("Market sync failed")
			}
		}
	}
}
