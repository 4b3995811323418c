package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"localeditor/redis"
	"localeditor/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher предоставляет методы для публикации событий сессий
type Publisher struct {
	bus Bus
	now func() time.Time
}

// NewPublisher создает новый экземпляр публикатора событий
func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus, now: time.Now}
}

// BuildChannelName формирует имя канала сессии
func BuildChannelName(sessionID uuid.UUID) string {
	return redis.Key("session", sessionID.String())
}

// PublishSessionEvent публикует событие сессии. A nil Publisher is a no-op.
func (p *Publisher) PublishSessionEvent(ctx context.Context, sessionID uuid.UUID, action SessionAction, metadata map[string]any) error {
	if p == nil || p.bus == nil {
		return nil
	}

	event := SessionEvent{
		Action:    action,
		SessionID: sessionID,
		Type:      SessionEventType,
		Metadata:  metadata,
		Timestamp: p.now().UTC(),
	}
	return p.publishEvent(ctx, BuildChannelName(sessionID), event)
}

// publishEvent приватный метод для публикации события
func (p *Publisher) publishEvent(ctx context.Context, channel string, event SessionEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		utils.Logger.Error("Failed to marshal event", zap.Error(err), zap.Any("event", event))
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.bus.Publish(ctx, channel, eventJSON); err != nil {
		utils.Logger.Error("Failed to publish event",
			zap.Error(err),
			zap.String("channel", channel),
			zap.String("action", string(event.Action)))
		return fmt.Errorf("publish event: %w", err)
	}

	utils.Logger.Debug("Published session event",
		zap.String("channel", channel),
		zap.String("action", string(event.Action)))

	return nil
}
