package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReconnectionPolicy recreates persistent sessions after destruction.
type ReconnectionPolicy struct {
	engine      Engine
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewReconnectionPolicy creates a new reconnection policy.
func NewReconnectionPolicy(engine Engine, config ReconnectConfig, logger *zap.Logger) *ReconnectionPolicy {
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &ReconnectionPolicy{
		engine:      engine,
		maxAttempts: maxAttempts,
		retryDelay:  config.RetryDelay,
		logger:      logger,
	}
}

// Reconnect creates a deafened session on the given channel pair. Creating
// a session is idempotent on the engine side, so failed attempts are retried
// up to the configured limit.
func (p *ReconnectionPolicy) Reconnect(ctx context.Context, guildID, voiceChannelID, textChannelID string) (*Session, error) {
	if voiceChannelID == "" || textChannelID == "" {
		return nil, fmt.Errorf("guild %s: %w", guildID, ErrIncompleteSessionConfig)
	}

	req := CreateSessionRequest{
		GuildID:        guildID,
		TextChannelID:  textChannelID,
		VoiceChannelID: voiceChannelID,
		Deaf:           true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		session, err := p.engine.CreateSession(ctx, req)
		if err == nil {
			p.logger.Info("Recreated persistent session",
				zap.String("guildID", guildID),
				zap.String("voiceChannelID", voiceChannelID),
				zap.String("textChannelID", textChannelID),
				zap.Int("attempt", attempt))
			return session, nil
		}

		lastErr = err
		p.logger.Warn("Failed to recreate persistent session",
			zap.String("guildID", guildID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", p.maxAttempts),
			zap.Error(err))

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("reconnect guild %s: %w", guildID, ctx.Err())
		case <-time.After(p.retryDelay):
		}
	}

	return nil, fmt.Errorf("reconnect guild %s after %d attempts: %w", guildID, p.maxAttempts, lastErr)
}
