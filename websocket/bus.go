package websocket

import (
	"context"
	"sync"

	"localeditor/redis"
	"localeditor/utils"

	"go.uber.org/zap"
)

// EventHandler определяет тип обработчика событий для универсальной подписки.
// Обработчик принимает контекст и сырой payload (который можно JSON-десериализовать в нужную структуру).
type EventHandler func(ctx context.Context, payload []byte) error

// Bus delivers raw payloads on named channels. A subscription lives until
// its context is cancelled.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handler EventHandler) error
}

// LocalBus fans payloads out inside one process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]EventHandler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]EventHandler)}
}

// Publish calls the channel's handlers synchronously.
func (b *LocalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs[channel]))
	for _, h := range b.subs[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, payload); err != nil {
			utils.Logger.Error("Error handling websocket event",
				zap.String("channel", channel),
				zap.Error(err))
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, channel string, handler EventHandler) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]EventHandler)
	}
	b.subs[channel][id] = handler
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], id)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		b.mu.Unlock()
	}()
	return nil
}

// Subscribers returns the number of live subscriptions on channel.
func (b *LocalBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// RedisBus carries payloads over Redis Pub/Sub so every replica sees them.
type RedisBus struct {
	rs *redis.Service
}

func NewRedisBus(rs *redis.Service) *RedisBus {
	return &RedisBus{rs: rs}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.rs.Publish(ctx, channel, payload)
}

// Subscribe выполняет подписку на channel и вызывает handler для каждого сообщения.
func (b *RedisBus) Subscribe(ctx context.Context, channel string, handler EventHandler) error {
	pubsub, err := b.rs.Subscribe(ctx, channel)
	if err != nil {
		utils.Logger.Error("Redis unavailable for websocket", zap.Error(err))
		return err
	}
	chEvents := pubsub.Channel()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.Logger.Error("Panic in websocket handler",
					zap.String("channel", channel),
					zap.Any("panic", r))
			}
			if err := pubsub.Close(); err != nil {
				utils.Logger.Error("Error closing Redis pubsub",
					zap.String("channel", channel),
					zap.Error(err))
			}
			utils.Logger.Debug("Subscription ended and cleaned up", zap.String("channel", channel))
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-chEvents:
				if !ok {
					utils.Logger.Info("Redis channel closed, ending subscription",
						zap.String("channel", channel))
					return
				}
				if err := handler(ctx, []byte(msg.Payload)); err != nil {
					utils.Logger.Error("Error handling websocket event",
						zap.String("channel", channel),
						zap.Error(err))
				}
			}
		}
	}()

	return nil
}
