package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrRelayClosed: Redis закрыл канал подписки.
var ErrRelayClosed = errors.New("feed: relay channel closed")

// RedisRelay читает те же кадры из Redis Pub/Sub. Так реплики консоли
// получают ленту без собственного соединения с бэкендом.
type RedisRelay struct {
	dispatcher

	rdb       *redis.Client
	channel   string
	logger    *zap.Logger
	pubsub    atomic.Pointer[redis.PubSub]
	connected atomic.Bool
}

func NewRedisRelay(rdb *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With(zap.String("mod", "feed-relay")),
	}
}

func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	r.pubsub.Store(pubsub)
	defer pubsub.Close()

	// Проверка успешности подписки
	if _, err := pubsub.Receive(ctx); err != nil {
		err = fmt.Errorf("feed: subscribe %s: %w", r.channel, err)
		r.logger.Error("relay subscription failed", zap.Error(err))
		r.fail(err)
		return err
	}
	r.connected.Store(true)
	defer r.connected.Store(false)
	r.logger.Info("relay subscribed", zap.String("chan", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				r.fail(ErrRelayClosed)
				return ErrRelayClosed
			}
			r.emit([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) Close() error {
	if ps := r.pubsub.Load(); ps != nil {
		return ps.Close()
	}
	return nil
}

func (r *RedisRelay) Connected() bool {
	return r.connected.Load()
}

// Republisher пересылает каждый принятый кадр в канал relay.
// Подписывается на основной Socket той консоли, что держит соединение с бэкендом.
type Republisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRepublisher(rdb *redis.Client, channel string, logger *zap.Logger) *Republisher {
	return &Republisher{rdb: rdb, channel: channel, logger: logger.Named("republisher")}
}

func (p *Republisher) HandleFrame(frame []byte) {
	if err := p.rdb.Publish(context.Background(), p.channel, frame).Err(); err != nil {
		p.logger.Warn("relay publish failed", zap.String("chan", p.channel), zap.Error(err))
	}
}

func (p *Republisher) HandleError(error) {}
