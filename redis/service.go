package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"localeditor/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// KeyPrefix namespaces every key this service writes.
	KeyPrefix = "localeditor:"

	initialReconnectInterval = 5 * time.Second // Начальный интервал для переподключения
	maxReconnectInterval     = 5 * time.Minute // Максимальный интервал для переподключения
	reconnectMultiplier      = 2               // Множитель для экспоненциального backoff
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("redis: cache miss")

// RedisUnavailableError represents an error when Redis is unavailable
type RedisUnavailableError struct {
	Err error
}

func (e *RedisUnavailableError) Error() string {
	return fmt.Sprintf("redis is unavailable: %v", e.Err)
}

func (e *RedisUnavailableError) Unwrap() error {
	return e.Err
}

// IsRedisUnavailable checks if the error is RedisUnavailableError
func IsRedisUnavailable(err error) bool {
	var target *RedisUnavailableError
	return errors.As(err, &target)
}

func errClientNil() error {
	return &RedisUnavailableError{Err: fmt.Errorf("redis client is nil")}
}

// RedisConfig stores Redis configuration parameters
type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxRetries      int
	MinRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	MaxConnAge      time.Duration
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewRedisConfigFromEnv creates Redis configuration from environment variables
func NewRedisConfigFromEnv() *RedisConfig {
	return &RedisConfig{
		Host:            utils.GetEnv("REDIS_HOST", "localhost"),
		Port:            utils.GetEnv("REDIS_PORT", "6379"),
		Password:        utils.GetEnv("REDIS_PASSWORD", ""),
		DB:              utils.GetEnvInt("REDIS_DB", 0),
		PoolSize:        utils.GetEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns:    utils.GetEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		MaxRetries:      utils.GetEnvInt("REDIS_MAX_RETRIES", 3),
		MinRetryBackoff: utils.GetEnvDuration("REDIS_RETRY_BACKOFF", 100*time.Millisecond),
		DialTimeout:     utils.GetEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:     utils.GetEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout:    utils.GetEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolTimeout:     utils.GetEnvDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		IdleTimeout:     utils.GetEnvDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		MaxConnAge:      utils.GetEnvDuration("REDIS_MAX_CONN_AGE", 0),
	}
}

// Service owns the Redis connection used for the response cache, the
// state store and session events. While Redis is down every call returns
// *RedisUnavailableError and a background loop keeps reconnecting.
type Service struct {
	client       *redis.Client
	config       *RedisConfig
	mu           sync.RWMutex // Мьютекс для безопасного доступа к client
	healthCtx    context.Context
	healthCancel context.CancelFunc
	wg           sync.WaitGroup
}

var (
	instance *Service
	once     sync.Once
)

// GetService returns the process-wide Service configured from the
// environment. The error reports the current connection state; the
// returned Service is usable either way.
func GetService() (*Service, error) {
	once.Do(func() {
		instance = NewService(NewRedisConfigFromEnv())
	})

	if client := instance.getClient(); client != nil {
		return instance, nil
	}
	return instance, errClientNil()
}

// NewService connects with config and starts the health check loop.
func NewService(config *RedisConfig) *Service {
	s := &Service{config: config}
	s.healthCtx, s.healthCancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.healthCheckLoop()

	// Пытаемся установить начальное соединение
	if client, err := newRedisClient(config); err == nil {
		s.setClient(client)
	}
	return s
}

// NewServiceWithClient wraps an existing client without health checks.
func NewServiceWithClient(client *redis.Client) *Service {
	s := &Service{client: client, config: &RedisConfig{}}
	s.healthCtx, s.healthCancel = context.WithCancel(context.Background())
	return s
}

// healthCheckLoop периодически проверяет доступность Redis и восстанавливает соединение при необходимости
func (s *Service) healthCheckLoop() {
	defer s.wg.Done()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	currentInterval := initialReconnectInterval
	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client := s.getClient()
			if client == nil {
				utils.Logger.Debug("Attempting to reconnect to Redis",
					zap.Duration("interval", currentInterval))

				newClient, err := newRedisClient(s.config)
				if err == nil {
					s.setClient(newClient)
					utils.Logger.Info("Successfully reconnected to Redis")
					currentInterval = initialReconnectInterval
					ticker.Reset(currentInterval)
					continue
				}

				utils.Logger.Debug("Failed to reconnect to Redis", zap.Error(err))
				currentInterval = nextBackoff(currentInterval)
				ticker.Reset(withJitter(rnd, currentInterval))
				continue
			}

			ctx, cancel := context.WithTimeout(s.healthCtx, 2*time.Second)
			if err := client.Ping(ctx).Err(); err != nil {
				utils.Logger.Warn("Redis connection is unhealthy, closing and will attempt to reconnect",
					zap.Error(err))
				_ = client.Close()
				s.setClient(nil)
				currentInterval = initialReconnectInterval
				ticker.Reset(currentInterval)
			}
			cancel()
		case <-s.healthCtx.Done():
			utils.Logger.Debug("Redis health check loop stopped")
			return
		}
	}
}

// nextBackoff doubles interval up to maxReconnectInterval.
func nextBackoff(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * reconnectMultiplier)
	if next > maxReconnectInterval {
		return maxReconnectInterval
	}
	return next
}

// withJitter adds ±10% to interval.
func withJitter(rnd *rand.Rand, interval time.Duration) time.Duration {
	if interval < 10 {
		return interval
	}
	jitter := time.Duration(rnd.Int63n(int64(interval/5))) - interval/10
	return interval + jitter
}

func (s *Service) setClient(client *redis.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

func (s *Service) getClient() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Available reports whether a connection is currently held.
func (s *Service) Available() bool {
	return s.getClient() != nil
}

// newRedisClient creates new Redis client instance
func newRedisClient(config *RedisConfig) (*redis.Client, error) {
	utils.Logger.Debug("Initializing Redis connection",
		zap.String("addr", config.Addr()),
		zap.Bool("password_set", config.Password != ""),
	)

	opts := &redis.Options{
		Addr:            config.Addr(),
		DB:              config.DB,
		Password:        config.Password,
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		MaxRetries:      config.MaxRetries,
		MinRetryBackoff: config.MinRetryBackoff,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		PoolTimeout:     config.PoolTimeout,
		IdleTimeout:     config.IdleTimeout,
		MaxConnAge:      config.MaxConnAge,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		utils.Logger.Warn("Redis is not available",
			zap.Error(err),
			zap.String("addr", config.Addr()),
		)
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.Addr(), err)
	}

	utils.Logger.Info("Successfully connected to Redis",
		zap.String("addr", config.Addr()),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize),
	)

	return client, nil
}

// Key prefixes parts with KeyPrefix: Key("cache", url) -> "localeditor:cache:<url>".
func Key(parts ...string) string {
	key := KeyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Set stores data under key; ttl 0 means no expiry.
func (s *Service) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	client := s.getClient()
	if client == nil {
		return errClientNil()
	}

	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		utils.Logger.Warn("Failed to set value in Redis",
			zap.Error(err),
			zap.String("key", key),
		)
		return &RedisUnavailableError{Err: err}
	}
	return nil
}

// Get returns ErrCacheMiss for absent keys.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	client := s.getClient()
	if client == nil {
		return nil, errClientNil()
	}

	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, &RedisUnavailableError{Err: err}
	}
	return data, nil
}

// Delete removes keys; missing keys are not an error.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	client := s.getClient()
	if client == nil {
		return errClientNil()
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		return &RedisUnavailableError{Err: err}
	}
	return nil
}

// Publish sends payload to channel.
func (s *Service) Publish(ctx context.Context, channel string, payload []byte) error {
	client := s.getClient()
	if client == nil {
		return errClientNil()
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return &RedisUnavailableError{Err: err}
	}
	return nil
}

// Subscribe opens a pub/sub subscription. The caller closes it.
func (s *Service) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	client := s.getClient()
	if client == nil {
		return nil, errClientNil()
	}
	pubsub := client.Subscribe(ctx, channels...)
	// Receive blocks until the subscription is confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, &RedisUnavailableError{Err: err}
	}
	return pubsub, nil
}

// Close closes Redis connection and stops the health check
func (s *Service) Close() error {
	if s.healthCancel != nil {
		s.healthCancel()
	}
	s.wg.Wait()

	client := s.getClient()
	if client == nil {
		return nil
	}
	s.setClient(nil)
	return client.Close()
}
