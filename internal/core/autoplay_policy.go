package core

import (
	"context"

	"go.uber.org/zap"
)

// AutoplayPolicy requests a continuation track when a queue runs dry. It
// holds no state of its own.
type AutoplayPolicy struct {
	engine  Engine
	metrics Metrics
	logger  *zap.Logger
}

// NewAutoplayPolicy creates a new autoplay policy.
func NewAutoplayPolicy(engine Engine, metrics Metrics, logger *zap.Logger) *AutoplayPolicy {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AutoplayPolicy{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// ContinuationFor asks the engine for a track related to lastTrackURI. The
// engine enqueues and starts it; nothing is returned to the caller.
func (p *AutoplayPolicy) ContinuationFor(ctx context.Context, s *Session, lastTrackURI string) {
	if lastTrackURI == "" {
		p.logger.Info("No previous track to seed autoplay",
			zap.String("guildID", s.GuildID))
		p.metrics.RecordAutoplay("no_seed")
		return
	}

	if err := p.engine.Continue(ctx, s, lastTrackURI); err != nil {
		p.logger.Warn("Autoplay continuation failed",
			zap.String("guildID", s.GuildID),
			zap.String("seedURI", lastTrackURI),
			zap.Error(err))
		p.metrics.RecordAutoplay("failed")
		return
	}

	p.logger.Debug("Requested autoplay continuation",
		zap.String("guildID", s.GuildID),
		zap.String("seedURI", lastTrackURI))
	p.metrics.RecordAutoplay("requested")
}
